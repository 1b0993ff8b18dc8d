package controllers

import (
	"testing"
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeCall_BillsElapsedMinutes(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "caller", decimal.NewFromInt(100))
	astrologer := seedAstrologer(t, db, "guru", decimal.NewFromInt(5))

	start := time.Now().Add(-150 * time.Second) // 2.5 minutes, bills 3
	session := models.CallSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.CallStatusOngoing,
		PricePerMinute: decimal.NewFromInt(5),
		StartTime:      &start,
	}
	require.NoError(t, db.Create(&session).Error)

	ended, txn, err := finalizeCall(session.ID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.CallStatusCompleted, ended.Status)
	assert.Equal(t, 3, ended.TotalMinutes)
	assert.True(t, ended.TotalCost.Equal(decimal.NewFromInt(15)))
	require.NotNil(t, txn)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(85)))

	var host models.Astrologer
	require.NoError(t, db.First(&host, astrologer.ID).Error)
	assert.True(t, host.TotalEarnings.Equal(decimal.NewFromInt(15)))
}

func TestFinalizeCall_DoubleEndBillsOnce(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "caller2", decimal.NewFromInt(100))
	astrologer := seedAstrologer(t, db, "guru2", decimal.NewFromInt(2))

	start := time.Now().Add(-61 * time.Second)
	session := models.CallSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.CallStatusAccepted,
		PricePerMinute: decimal.NewFromInt(2),
		StartTime:      &start,
	}
	require.NoError(t, db.Create(&session).Error)

	first, txn, err := finalizeCall(session.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, 2, first.TotalMinutes)

	// Both parties hang up; the second end must not charge again.
	second, txn2, err := finalizeCall(session.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, txn2)
	assert.Equal(t, models.CallStatusCompleted, second.Status)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(96)), "got %s", wallet.Balance)

	var debits int64
	db.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND type = ?", user.ID, models.TransactionTypeDebit).
		Count(&debits)
	assert.Equal(t, int64(1), debits)
}

func TestFinalizeCall_InsufficientBalanceKeepsSessionBillable(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "caller3", decimal.NewFromInt(3))
	astrologer := seedAstrologer(t, db, "guru3", decimal.NewFromInt(5))

	start := time.Now().Add(-10 * time.Minute)
	session := models.CallSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.CallStatusOngoing,
		PricePerMinute: decimal.NewFromInt(5),
		StartTime:      &start,
	}
	require.NoError(t, db.Create(&session).Error)

	_, _, err := finalizeCall(session.ID, time.Now())
	require.Error(t, err)
	_, ok := utils.IsInsufficientFunds(err)
	assert.True(t, ok)

	// The whole settlement rolled back: session still billable, wallet and
	// astrologer earnings untouched.
	var reloaded models.CallSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.Equal(t, models.CallStatusOngoing, reloaded.Status)
	assert.Nil(t, reloaded.EndTime)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(3)))

	var host models.Astrologer
	require.NoError(t, db.First(&host, astrologer.ID).Error)
	assert.True(t, host.TotalEarnings.Equal(decimal.Zero))
}

func TestFinalizeCall_NeverConnected(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "caller4", decimal.NewFromInt(50))
	astrologer := seedAstrologer(t, db, "guru4", decimal.NewFromInt(5))

	session := models.CallSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.CallStatusRinging,
		PricePerMinute: decimal.NewFromInt(5),
	}
	require.NoError(t, db.Create(&session).Error)

	_, _, err := finalizeCall(session.ID, time.Now())
	require.Error(t, err)
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
}
