package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/oklog/ulid/v2"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// createRazorpayOrder opens a gateway order for the given rupee amount and
// returns the gateway order id. A failed gateway call leaves no local state.
func createRazorpayOrder(userID uint, amount decimal.Decimal) (string, string, error) {
	receipt := fmt.Sprintf("rchg_%d_%s", userID, ulid.Make().String())

	client := razorpay.NewClient(os.Getenv("RAZORPAY_KEY"), os.Getenv("RAZORPAY_SECRET"))
	orderData := map[string]interface{}{
		"amount":          utils.ToPaise(amount),
		"currency":        "INR",
		"receipt":         receipt,
		"payment_capture": 1,
	}
	rzOrder, err := client.Order.Create(orderData, nil)
	if err != nil {
		return "", "", utils.GatewayError("Failed to create Razorpay order", err)
	}
	return fmt.Sprintf("%v", rzOrder["id"]), receipt, nil
}

// verifyPaymentSignature recomputes the HMAC-SHA256 of "orderId|paymentId"
// with the key secret and compares it to the client-submitted signature.
func verifyPaymentSignature(orderID, paymentID, signature string) bool {
	h := hmac.New(sha256.New, []byte(os.Getenv("RAZORPAY_SECRET")))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// verifyWebhookSignature checks the X-Razorpay-Signature HMAC over the raw
// webhook body against the separate webhook secret.
func verifyWebhookSignature(body []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(os.Getenv("RAZORPAY_WEBHOOK_SECRET")))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// applyRechargeSuccess credits the wallet for a captured payment exactly
// once. Both the client verify path and the gateway webhook path funnel here
// after authenticating their input; the two may race for the same order id
// and correctness rests on the status-guarded single-row flip, not on any
// external lock. Replays return the already-completed transaction.
func applyRechargeSuccess(orderID, paymentID, signature string) (*models.Wallet, *models.WalletTransaction, error) {
	var (
		wallet      *models.Wallet
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var txn models.WalletTransaction
		if err := lockForUpdate(tx).Where("razorpay_order_id = ?", orderID).First(&txn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Recharge order not found", err)
			}
			return err
		}

		if txn.Status == models.TransactionStatusCompleted {
			// Idempotent replay: same payment arriving twice.
			transaction = &txn
			var w models.Wallet
			if err := tx.First(&w, txn.WalletID).Error; err != nil {
				return err
			}
			wallet = &w
			return nil
		}
		if txn.Status != models.TransactionStatusPending {
			return utils.ConflictError("Recharge order already processed", nil)
		}

		w, err := getWalletForUpdate(tx, txn.UserID, true)
		if err != nil {
			return err
		}
		before := w.Balance
		after := before.Add(txn.Amount)

		res := tx.Model(&models.WalletTransaction{}).
			Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":              models.TransactionStatusCompleted,
				"razorpay_payment_id": paymentID,
				"razorpay_signature":  signature,
				"balance_before":      before,
				"balance_after":       after,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent apply won the race after our read.
			if err := tx.First(&txn, txn.ID).Error; err != nil {
				return err
			}
			transaction = &txn
			wallet = w
			return nil
		}

		if err := tx.Model(w).Updates(map[string]interface{}{
			"balance":        after,
			"total_recharge": w.TotalRecharge.Add(txn.Amount),
		}).Error; err != nil {
			return err
		}
		w.Balance = after
		w.TotalRecharge = w.TotalRecharge.Add(txn.Amount)

		// Confirmed payment is the only point where a coupon use is burned.
		var usage models.CouponUsage
		if err := tx.Where("razorpay_order_id = ? AND status = ?", orderID, models.CouponUsagePending).
			First(&usage).Error; err == nil {
			if err := tx.Model(&usage).Update("status", models.CouponUsageSuccess).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Coupon{}).Where("id = ?", usage.CouponID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		txn.RazorpayPaymentID = paymentID
		txn.BalanceBefore = before
		txn.BalanceAfter = after
		transaction = &txn
		wallet = w
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, transaction, nil
}

// markRechargeFailed flips a pending recharge to failed. A completed record
// is never overwritten, so a late failure event after a capture is a no-op.
func markRechargeFailed(orderID, reason string) error {
	return config.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.WalletTransaction{}).
			Where("razorpay_order_id = ? AND status = ?", orderID, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":   models.TransactionStatusFailed,
				"metadata": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.CouponUsage{}).
			Where("razorpay_order_id = ? AND status = ?", orderID, models.CouponUsagePending).
			Update("status", models.CouponUsageFailed).Error
	})
}
