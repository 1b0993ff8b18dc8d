package controllers

import (
	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetWallet returns the user's wallet summary.
func GetWallet(c *gin.Context) {
	utils.LogInfo("GetWallet called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	wallet, err := getOrCreateWallet(user.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get wallet", nil)
		return
	}

	utils.Success(c, "Wallet retrieved successfully", gin.H{
		"wallet": gin.H{
			"id":             wallet.ID,
			"balance":        wallet.Balance.StringFixed(2),
			"total_recharge": wallet.TotalRecharge.StringFixed(2),
			"total_spent":    wallet.TotalSpent.StringFixed(2),
			"is_active":      wallet.IsActive,
		},
	})
}

// GetWalletTransactions lists the user's ledger entries, newest first.
func GetWalletTransactions(c *gin.Context) {
	utils.LogInfo("GetWalletTransactions called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	pagination := utils.NewPagination(c)

	query := config.DB.Model(&models.WalletTransaction{}).Where("user_id = ?", user.ID)
	if txnType := c.Query("type"); txnType != "" {
		query = query.Where("type = ?", txnType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError("Failed to count transactions for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch transactions", nil)
		return
	}
	pagination.SetTotal(total)

	var transactions []models.WalletTransaction
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).Offset(pagination.Offset).
		Find(&transactions).Error; err != nil {
		utils.LogError("Failed to fetch transactions for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch transactions", nil)
		return
	}

	utils.SendPaginatedResponse(c, transactions, pagination)
}

// AdminAdjustWallet credits or debits a user's wallet as a manual
// administrative adjustment, recorded in the ledger like any other movement.
func AdminAdjustWallet(c *gin.Context) {
	utils.LogInfo("AdminAdjustWallet called")
	if _, exists := c.Get("admin"); !exists {
		utils.Unauthorized(c, "Admin not found")
		return
	}

	var req struct {
		UserID      uint            `json:"user_id" binding:"required"`
		Amount      decimal.Decimal `json:"amount" binding:"required"`
		Type        string          `json:"type" binding:"required,oneof=credit debit"`
		Description string          `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var (
		wallet      *models.Wallet
		transaction *models.WalletTransaction
		err         error
	)
	if req.Type == models.TransactionTypeCredit {
		wallet, transaction, err = CreditWallet(req.UserID, req.Amount, req.Description, models.PaymentMethodAdmin, "")
	} else {
		wallet, transaction, err = DebitWallet(req.UserID, req.Amount, req.Description, models.PaymentMethodAdmin, "")
	}
	if err != nil {
		if ife, ok := utils.IsInsufficientFunds(err); ok {
			utils.PaymentRequired(c, "Wallet balance cannot cover this debit", ife)
			return
		}
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to adjust wallet for user ID: %d: %v", req.UserID, err)
		utils.InternalServerError(c, "Failed to adjust wallet", nil)
		return
	}

	utils.LogInfo("Admin %sed ₹%s for user ID: %d", req.Type, req.Amount.StringFixed(2), req.UserID)
	utils.Success(c, "Wallet adjusted successfully", gin.H{
		"wallet_balance": wallet.Balance.StringFixed(2),
		"transaction_id": transaction.ID,
	})
}
