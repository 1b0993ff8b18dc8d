package controllers

import (
	"fmt"
	"testing"
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLiveSession(t *testing.T, db *gorm.DB, astrologerID uint, rate decimal.Decimal) models.LiveSession {
	t.Helper()

	started := time.Now().Add(-time.Hour)
	session := models.LiveSession{
		AstrologerID:   astrologerID,
		Title:          "Evening predictions",
		Status:         models.LiveStatusLive,
		ChannelName:    "live_test",
		PricePerMinute: rate,
		StartedAt:      &started,
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

func seedParticipant(t *testing.T, db *gorm.DB, sessionID, userID uint, rate decimal.Decimal, joinedAgo time.Duration) models.LiveParticipant {
	t.Helper()

	joined := time.Now().Add(-joinedAgo)
	participant := models.LiveParticipant{
		SessionID:      sessionID,
		UserID:         userID,
		IsActive:       true,
		PricePerMinute: rate,
		JoinedAt:       &joined,
	}
	require.NoError(t, db.Create(&participant).Error)
	return participant
}

func TestFinalizeLiveParticipant_BillsWatchWindow(t *testing.T) {
	db := setupTestDB(t)
	astrologer := seedAstrologer(t, db, "host", decimal.NewFromInt(3))
	user := seedUserWithBalance(t, db, "viewer", decimal.NewFromInt(50))
	session := seedLiveSession(t, db, astrologer.ID, decimal.NewFromInt(3))
	seedParticipant(t, db, session.ID, user.ID, decimal.NewFromInt(3), 4*time.Minute)
	require.NoError(t, db.Model(&session).Update("current_viewers", 1).Error)

	participant, txn, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), true)
	require.NoError(t, err)

	assert.False(t, participant.IsActive)
	assert.Equal(t, 4, participant.TotalMinutes)
	assert.True(t, participant.TotalCost.Equal(decimal.NewFromInt(12)))
	require.NotNil(t, txn)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(38)))

	var reloaded models.LiveSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.Equal(t, 0, reloaded.CurrentViewers)
	assert.True(t, reloaded.TotalEarnings.Equal(decimal.NewFromInt(12)))

	var host models.Astrologer
	require.NoError(t, db.First(&host, astrologer.ID).Error)
	assert.True(t, host.TotalEarnings.Equal(decimal.NewFromInt(12)))
}

func TestFinalizeLiveParticipant_DoubleLeaveBillsOnce(t *testing.T) {
	db := setupTestDB(t)
	astrologer := seedAstrologer(t, db, "host2", decimal.NewFromInt(2))
	user := seedUserWithBalance(t, db, "viewer2", decimal.NewFromInt(50))
	session := seedLiveSession(t, db, astrologer.ID, decimal.NewFromInt(2))
	seedParticipant(t, db, session.ID, user.ID, decimal.NewFromInt(2), 2*time.Minute)

	_, txn, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), true)
	require.NoError(t, err)
	require.NotNil(t, txn)

	// A duplicate leave, e.g. racing with a forced end, settles nothing more.
	_, txn2, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), false)
	require.NoError(t, err)
	assert.Nil(t, txn2)

	var debits int64
	db.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND type = ?", user.ID, models.TransactionTypeDebit).
		Count(&debits)
	assert.Equal(t, int64(1), debits)
}

func TestFinalizeLiveParticipant_StrictShortfallRollsBack(t *testing.T) {
	db := setupTestDB(t)
	astrologer := seedAstrologer(t, db, "host3", decimal.NewFromInt(5))
	user := seedUserWithBalance(t, db, "viewer3", decimal.NewFromInt(2))
	session := seedLiveSession(t, db, astrologer.ID, decimal.NewFromInt(5))
	seedParticipant(t, db, session.ID, user.ID, decimal.NewFromInt(5), 3*time.Minute)

	_, _, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), true)
	require.Error(t, err)
	_, ok := utils.IsInsufficientFunds(err)
	assert.True(t, ok)

	// Voluntary leave with an empty wallet leaves the viewer active so the
	// window can be settled after a recharge.
	var participant models.LiveParticipant
	require.NoError(t, db.Where("session_id = ? AND user_id = ?", session.ID, user.ID).First(&participant).Error)
	assert.True(t, participant.IsActive)
	assert.Equal(t, 0, participant.TotalMinutes)
}

func TestFinalizeLiveParticipant_ForcedEndRecordsShortfall(t *testing.T) {
	db := setupTestDB(t)
	astrologer := seedAstrologer(t, db, "host4", decimal.NewFromInt(5))
	user := seedUserWithBalance(t, db, "viewer4", decimal.NewFromInt(2))
	session := seedLiveSession(t, db, astrologer.ID, decimal.NewFromInt(5))
	seedParticipant(t, db, session.ID, user.ID, decimal.NewFromInt(5), 3*time.Minute)

	participant, txn, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), false)
	require.NoError(t, err)
	assert.Nil(t, txn)

	// The broadcast closes out the viewer anyway; the uncollected amount lands
	// in the ledger as a failed debit.
	assert.False(t, participant.IsActive)
	assert.Equal(t, 3, participant.TotalMinutes)

	var failed models.WalletTransaction
	require.NoError(t, db.Where("user_id = ? AND status = ?", user.ID, models.TransactionStatusFailed).First(&failed).Error)
	assert.True(t, failed.Amount.Equal(decimal.NewFromInt(15)))
	assert.Contains(t, failed.Metadata, "shortfall")

	// No money moved and the host earned nothing from this viewer.
	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(2)))

	var reloaded models.LiveSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.True(t, reloaded.TotalEarnings.Equal(decimal.Zero))
}

func TestForcedEnd_BillsEachParticipantAtTheirJoinRate(t *testing.T) {
	db := setupTestDB(t)
	astrologer := seedAstrologer(t, db, "host5", decimal.NewFromInt(5))
	session := seedLiveSession(t, db, astrologer.ID, decimal.NewFromInt(5))

	// Three viewers joined at different advertised rates; each is billed at
	// the rate snapshotted on their own participant row. 90 seconds bills 2
	// minutes for everyone.
	rates := []int64{2, 3, 5}
	var users []models.User
	for i, r := range rates {
		u := seedUserWithBalance(t, db, fmt.Sprintf("audience%d", i), decimal.NewFromInt(100))
		seedParticipant(t, db, session.ID, u.ID, decimal.NewFromInt(r), 90*time.Second)
		users = append(users, u)
	}
	require.NoError(t, db.Model(&session).Update("current_viewers", len(users)).Error)

	now := time.Now()
	for _, u := range users {
		_, _, err := finalizeLiveParticipant(session.ID, u.ID, now, false)
		require.NoError(t, err)
	}

	expected := []string{"4.00", "6.00", "10.00"}
	for i, u := range users {
		var p models.LiveParticipant
		require.NoError(t, db.Where("session_id = ? AND user_id = ?", session.ID, u.ID).First(&p).Error)
		assert.Equal(t, 2, p.TotalMinutes)
		assert.Equal(t, expected[i], p.TotalCost.StringFixed(2))
	}

	var reloaded models.LiveSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.Equal(t, 0, reloaded.CurrentViewers)
	assert.Equal(t, "20.00", reloaded.TotalEarnings.StringFixed(2))

	var host models.Astrologer
	require.NoError(t, db.First(&host, astrologer.ID).Error)
	assert.Equal(t, "20.00", host.TotalEarnings.StringFixed(2))
}
