package controllers

import (
	"testing"
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeChatWindow_BillsActiveWindow(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "chatter", decimal.NewFromInt(100))
	astrologer := seedAstrologer(t, db, "chatguru", decimal.NewFromInt(4))

	start := time.Now().Add(-5 * time.Minute)
	session := models.ChatSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.ChatStatusActive,
		RequestStatus:  models.ChatRequestApproved,
		PricePerMinute: decimal.NewFromInt(4),
		StartTime:      &start,
	}
	require.NoError(t, db.Create(&session).Error)

	ended, txn, err := finalizeChatWindow(session.ID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.ChatStatusEnded, ended.Status)
	assert.Equal(t, 5, ended.TotalMinutes)
	assert.True(t, ended.TotalCost.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, txn)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(80)))
}

func TestFinalizeChatWindow_AccumulatesAcrossWindows(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "returning", decimal.NewFromInt(100))
	astrologer := seedAstrologer(t, db, "chatguru2", decimal.NewFromInt(2))

	// A previous window already billed 3 minutes for 6.
	start := time.Now().Add(-2 * time.Minute)
	session := models.ChatSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.ChatStatusActive,
		RequestStatus:  models.ChatRequestApproved,
		PricePerMinute: decimal.NewFromInt(2),
		StartTime:      &start,
		TotalMinutes:   3,
		TotalCost:      decimal.NewFromInt(6),
	}
	require.NoError(t, db.Create(&session).Error)

	ended, txn, err := finalizeChatWindow(session.ID, time.Now())
	require.NoError(t, err)

	// Cumulative totals grow; only the new window is debited.
	assert.Equal(t, 5, ended.TotalMinutes)
	assert.True(t, ended.TotalCost.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, txn)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(4)))
}

func TestFinalizeChatWindow_AlreadyEndedIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithBalance(t, db, "done", decimal.NewFromInt(100))
	astrologer := seedAstrologer(t, db, "chatguru3", decimal.NewFromInt(2))

	end := time.Now().Add(-time.Minute)
	session := models.ChatSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.ChatStatusEnded,
		RequestStatus:  models.ChatRequestApproved,
		PricePerMinute: decimal.NewFromInt(2),
		EndTime:        &end,
		TotalMinutes:   4,
		TotalCost:      decimal.NewFromInt(8),
	}
	require.NoError(t, db.Create(&session).Error)

	ended, txn, err := finalizeChatWindow(session.ID, time.Now())
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Equal(t, 4, ended.TotalMinutes)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
}
