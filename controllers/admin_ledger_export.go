package controllers

import (
	"fmt"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// AdminExportLedgerExcel downloads the wallet transaction log for an audit
// window as an Excel workbook.
func AdminExportLedgerExcel(c *gin.Context) {
	utils.LogInfo("AdminExportLedgerExcel called")
	if _, exists := c.Get("admin"); !exists {
		utils.Unauthorized(c, "Admin not found")
		return
	}

	period := c.DefaultQuery("period", "day")
	now := time.Now()
	var startDate, endDate time.Time

	switch period {
	case "day":
		startDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endDate = startDate.Add(24 * time.Hour)
	case "week":
		endDate = now
		startDate = now.AddDate(0, 0, -7)
	case "month":
		endDate = now
		startDate = now.AddDate(0, -1, 0)
	default:
		utils.LogError("Invalid period specified: %s", period)
		utils.BadRequest(c, "Invalid period", "Period must be day, week, or month")
		return
	}

	var transactions []models.WalletTransaction
	if err := config.DB.Where("created_at >= ? AND created_at < ?", startDate, endDate).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		utils.LogError("Failed to fetch transactions: %v", err)
		utils.InternalServerError(c, "Failed to fetch transactions", nil)
		return
	}
	utils.LogDebug("Retrieved %d transactions for ledger export", len(transactions))

	totalCredits := decimal.Zero
	totalDebits := decimal.Zero
	for _, txn := range transactions {
		if txn.Status != models.TransactionStatusCompleted {
			continue
		}
		if txn.Type == models.TransactionTypeCredit {
			totalCredits = totalCredits.Add(txn.Amount)
		} else {
			totalDebits = totalDebits.Add(txn.Amount)
		}
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Wallet Ledger")
	if err != nil {
		utils.LogError("Failed to create sheet: %v", err)
		utils.InternalServerError(c, "Failed to generate report", nil)
		return
	}

	header := sheet.AddRow()
	style := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	style.Font = *font
	for _, title := range []string{"ID", "User ID", "Type", "Status", "Amount", "Balance Before", "Balance After", "Method", "Gateway Order ID", "Description", "Created At"} {
		cell := header.AddCell()
		cell.Value = title
		cell.SetStyle(style)
	}

	for _, txn := range transactions {
		row := sheet.AddRow()
		row.AddCell().Value = fmt.Sprintf("%d", txn.ID)
		row.AddCell().Value = fmt.Sprintf("%d", txn.UserID)
		row.AddCell().Value = txn.Type
		row.AddCell().Value = txn.Status
		row.AddCell().Value = txn.Amount.StringFixed(2)
		row.AddCell().Value = txn.BalanceBefore.StringFixed(2)
		row.AddCell().Value = txn.BalanceAfter.StringFixed(2)
		row.AddCell().Value = txn.PaymentMethod
		if txn.RazorpayOrderID != nil {
			row.AddCell().Value = *txn.RazorpayOrderID
		} else {
			row.AddCell().Value = ""
		}
		row.AddCell().Value = txn.Description
		row.AddCell().Value = txn.CreatedAt.Format("2006-01-02 15:04:05")
	}

	sheet.AddRow()
	summary := sheet.AddRow()
	summary.AddCell().Value = "Total credits"
	summary.AddCell().Value = totalCredits.StringFixed(2)
	summary = sheet.AddRow()
	summary.AddCell().Value = "Total debits"
	summary.AddCell().Value = totalDebits.StringFixed(2)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=wallet_ledger_%s.xlsx", period))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
	}
}
