package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVerifyPaymentSignature(t *testing.T) {
	t.Setenv("RAZORPAY_SECRET", "testsecret")

	h := hmac.New(sha256.New, []byte("testsecret"))
	h.Write([]byte("order_abc|pay_xyz"))
	valid := hex.EncodeToString(h.Sum(nil))

	assert.True(t, verifyPaymentSignature("order_abc", "pay_xyz", valid))
	assert.False(t, verifyPaymentSignature("order_abc", "pay_xyz", "deadbeef"))
	assert.False(t, verifyPaymentSignature("order_other", "pay_xyz", valid))
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsecret")

	body := []byte(`{"event":"payment.captured"}`)
	h := hmac.New(sha256.New, []byte("whsecret"))
	h.Write(body)
	valid := hex.EncodeToString(h.Sum(nil))

	assert.True(t, verifyWebhookSignature(body, valid))
	assert.False(t, verifyWebhookSignature([]byte(`{}`), valid))
}

// seedPendingRecharge mirrors what CreateRechargeOrder records before the
// gateway confirms the payment.
func seedPendingRecharge(t *testing.T, db *gorm.DB, userID uint, orderID string, amount decimal.Decimal) {
	t.Helper()

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&wallet).Error)
	require.NoError(t, db.Create(&models.WalletTransaction{
		WalletID:        wallet.ID,
		UserID:          userID,
		Amount:          amount,
		Type:            models.TransactionTypeCredit,
		Status:          models.TransactionStatusPending,
		PaymentMethod:   models.PaymentMethodRazorpay,
		RazorpayOrderID: &orderID,
	}).Error)
}

func TestApplyRechargeSuccess_CreditsOnce(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "recharger", decimal.NewFromInt(100))

	orderID := "order_test_1"
	seedPendingRecharge(t, db, user.ID, orderID, decimal.NewFromInt(500))

	wallet, txn, err := applyRechargeSuccess(orderID, "pay_1", "sig_1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "pay_1", txn.RazorpayPaymentID)
	assert.True(t, txn.BalanceBefore.Equal(decimal.NewFromInt(100)))
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(600)))

	// Replay of the same capture is a no-op returning the same record.
	wallet, txn, err = applyRechargeSuccess(orderID, "pay_1", "sig_1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(600)), "replay must not credit twice")
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)

	var final models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&final).Error)
	assert.True(t, final.Balance.Equal(decimal.NewFromInt(600)))
	assert.True(t, final.TotalRecharge.Equal(decimal.NewFromInt(500)))
}

func TestApplyRechargeSuccess_UnknownOrder(t *testing.T) {
	setupTestDB(t)

	_, _, err := applyRechargeSuccess("order_missing", "pay_x", "sig_x")
	assert.Error(t, err)
}

func TestApplyRechargeSuccess_BurnsCouponUse(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "couponuser", decimal.Zero)

	now := time.Now()
	coupon := models.Coupon{
		Code:       "WELCOME50",
		Type:       models.CouponTypeFlat,
		Value:      decimal.NewFromInt(50),
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		Active:     true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	orderID := "order_coupon_1"
	seedPendingRecharge(t, db, user.ID, orderID, decimal.NewFromInt(500))
	require.NoError(t, db.Create(&models.CouponUsage{
		UserID:          user.ID,
		CouponID:        coupon.ID,
		RazorpayOrderID: orderID,
		RechargeAmount:  decimal.NewFromInt(500),
		DiscountAmount:  decimal.NewFromInt(50),
		Status:          models.CouponUsagePending,
	}).Error)

	wallet, _, err := applyRechargeSuccess(orderID, "pay_c1", "sig_c1")
	require.NoError(t, err)
	// Wallet is credited the full recharge amount; the discount reduced the
	// gateway charge, not the credited value.
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(500)))

	var usage models.CouponUsage
	require.NoError(t, db.Where("razorpay_order_id = ?", orderID).First(&usage).Error)
	assert.Equal(t, models.CouponUsageSuccess, usage.Status)

	var reloaded models.Coupon
	require.NoError(t, db.First(&reloaded, coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestMarkRechargeFailed(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "failuser", decimal.Zero)

	orderID := "order_fail_1"
	seedPendingRecharge(t, db, user.ID, orderID, decimal.NewFromInt(200))

	require.NoError(t, markRechargeFailed(orderID, "card declined"))

	var txn models.WalletTransaction
	require.NoError(t, db.Where("razorpay_order_id = ?", orderID).First(&txn).Error)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Equal(t, "card declined", txn.Metadata)

	// Wallet untouched.
	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(decimal.Zero))
}

func TestMarkRechargeFailed_NeverOverwritesCapture(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "lateevent", decimal.Zero)

	orderID := "order_late_1"
	seedPendingRecharge(t, db, user.ID, orderID, decimal.NewFromInt(300))

	_, _, err := applyRechargeSuccess(orderID, "pay_l1", "sig_l1")
	require.NoError(t, err)

	// A stale failure webhook after the capture must be ignored.
	require.NoError(t, markRechargeFailed(orderID, "stale failure"))

	var txn models.WalletTransaction
	require.NoError(t, db.Where("razorpay_order_id = ?", orderID).First(&txn).Error)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
}
