package controllers

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateRechargeOrder opens a Razorpay order to add money to the wallet. The
// recharge is recorded as a pending ledger transaction keyed by the gateway
// order id; the wallet is credited only when the payment is confirmed.
func CreateRechargeOrder(c *gin.Context) {
	utils.LogInfo("CreateRechargeOrder called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return
	}
	user, ok := userVal.(models.User)
	if !ok {
		utils.LogError("Invalid user type in context")
		utils.BadRequest(c, "Invalid user in context", nil)
		return
	}
	userID := user.ID

	var req struct {
		Amount     decimal.Decimal `json:"amount" binding:"required"`
		CouponCode string          `json:"coupon_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request body for user ID: %d: %v", userID, err)
		utils.BadRequest(c, "Invalid request. Amount is required", err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		utils.LogError("Non-positive recharge amount for user ID: %d", userID)
		utils.BadRequest(c, "Amount must be positive", nil)
		return
	}
	utils.LogDebug("Recharge request - User ID: %d, Amount: %s, Coupon: %q", userID, req.Amount.StringFixed(2), req.CouponCode)

	// Resolve coupon discount before touching the gateway. The usage record
	// stays pending until the payment completes.
	discount := decimal.Zero
	var coupon *models.Coupon
	if req.CouponCode != "" {
		var cpn models.Coupon
		if err := config.DB.Where("code = ?", strings.ToUpper(req.CouponCode)).First(&cpn).Error; err != nil {
			utils.LogError("Coupon not found: %s for user ID: %d", req.CouponCode, userID)
			utils.NotFound(c, "Coupon not found")
			return
		}
		var usageCount int64
		if err := config.DB.Model(&models.CouponUsage{}).
			Where("user_id = ? AND coupon_id = ? AND status = ?", userID, cpn.ID, models.CouponUsageSuccess).
			Count(&usageCount).Error; err != nil {
			utils.LogError("Failed to count coupon usage for user ID: %d: %v", userID, err)
			utils.InternalServerError(c, "Failed to validate coupon", nil)
			return
		}
		resolved, err := utils.ResolveCouponDiscount(&cpn, req.Amount, int(usageCount), user.AgeDays(time.Now()), time.Now())
		if err != nil {
			utils.LogError("Coupon %s rejected for user ID: %d: %v", cpn.Code, userID, err)
			utils.BadRequest(c, err.Error(), nil)
			return
		}
		discount = resolved
		coupon = &cpn
		utils.LogDebug("Coupon %s resolved - discount: %s", cpn.Code, discount.StringFixed(2))
	}

	finalAmount := req.Amount.Sub(discount)
	orderID, receipt, err := createRazorpayOrder(userID, finalAmount)
	if err != nil {
		utils.LogError("Failed to create Razorpay order for user ID: %d: %v", userID, err)
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.InternalServerError(c, "Failed to create Razorpay order", nil)
		return
	}
	utils.LogDebug("Created Razorpay order %s for user ID: %d", orderID, userID)

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		wallet, err := getWalletForUpdate(tx, userID, true)
		if err != nil {
			return err
		}
		transaction := models.WalletTransaction{
			WalletID:        wallet.ID,
			UserID:          userID,
			Amount:          req.Amount,
			Type:            models.TransactionTypeCredit,
			Status:          models.TransactionStatusPending,
			PaymentMethod:   models.PaymentMethodRazorpay,
			RazorpayOrderID: &orderID,
			Description:     "Wallet recharge via Razorpay",
			Reference:       receipt,
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		if coupon != nil {
			usage := models.CouponUsage{
				UserID:          userID,
				CouponID:        coupon.ID,
				RazorpayOrderID: orderID,
				RechargeAmount:  req.Amount,
				DiscountAmount:  discount,
				Status:          models.CouponUsagePending,
			}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.LogError("Failed to record recharge order for user ID: %d: %v", userID, err)
		utils.InternalServerError(c, "Failed to record recharge order", nil)
		return
	}

	utils.LogInfo("Recharge order %s created for user ID: %d", orderID, userID)
	utils.Success(c, "Recharge order created successfully", gin.H{
		"razorpay_order_id": orderID,
		"amount":            req.Amount.StringFixed(2),
		"discount":          discount.StringFixed(2),
		"payable_amount":    finalAmount.StringFixed(2),
		"amount_display":    "₹" + finalAmount.StringFixed(2),
		"key":               os.Getenv("RAZORPAY_KEY"),
		"user": gin.H{
			"name":  user.Username,
			"email": user.Email,
		},
	})
}

// VerifyRecharge is the client-driven confirmation path. The signature check
// is mandatory here because this path is not trusted alone; the result is
// applied through the same idempotent step as the gateway webhook.
func VerifyRecharge(c *gin.Context) {
	utils.LogInfo("VerifyRecharge called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return
	}
	user, ok := userVal.(models.User)
	if !ok {
		utils.LogError("Invalid user type in context")
		utils.BadRequest(c, "Invalid user in context", nil)
		return
	}

	var req struct {
		RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
		RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
		RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request body for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	utils.LogDebug("Verification request - Order ID: %s, Payment ID: %s", req.RazorpayOrderID, req.RazorpayPaymentID)

	if !verifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		utils.LogError("Signature verification failed for order ID: %s, user ID: %d", req.RazorpayOrderID, user.ID)
		utils.BadRequest(c, "Payment verification failed", gin.H{"retry": true})
		return
	}

	wallet, transaction, err := applyRechargeSuccess(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		utils.LogError("Failed to apply recharge for order ID: %s: %v", req.RazorpayOrderID, err)
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.InternalServerError(c, "Failed to apply recharge", nil)
		return
	}

	utils.LogInfo("Recharge completed for order ID: %s, user ID: %d", req.RazorpayOrderID, user.ID)
	utils.Success(c, "Money added to wallet successfully!", gin.H{
		"amount_added":     transaction.Amount.StringFixed(2),
		"wallet_balance":   wallet.Balance.StringFixed(2),
		"transaction_id":   transaction.ID,
		"transaction_date": transaction.CreatedAt.Format("2006-01-02 15:04:05"),
		"reference":        transaction.Reference,
	})
}

// rechargeStatus looks up a recharge by gateway order id for the polling
// endpoint used while the webhook is in flight.
func rechargeStatus(orderID string, userID uint) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := config.DB.Where("razorpay_order_id = ? AND user_id = ?", orderID, userID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Recharge order not found", err)
	}
	return &txn, err
}

// GetRechargeStatus reports the current status of a recharge order.
func GetRechargeStatus(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	txn, err := rechargeStatus(c.Param("order_id"), user.ID)
	if err != nil {
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.InternalServerError(c, "Failed to fetch recharge status", nil)
		return
	}
	utils.Success(c, "Recharge status retrieved", gin.H{
		"razorpay_order_id": txn.RazorpayOrderID,
		"status":            txn.Status,
		"amount":            txn.Amount.StringFixed(2),
	})
}
