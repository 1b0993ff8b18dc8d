package controllers

import (
	"fmt"
	"testing"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens a fresh in-memory database, migrates the schema and wires
// it into the package-level connection the helpers use.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Astrologer{},
		&models.Admin{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.CallSession{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.LiveSession{},
		&models.LiveParticipant{},
	))

	config.DB = db
	return db
}

func seedUserWithBalance(t *testing.T, db *gorm.DB, username string, balance decimal.Decimal) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Wallet{
		UserID:   user.ID,
		Balance:  balance,
		IsActive: true,
	}).Error)
	return user
}

func seedAstrologer(t *testing.T, db *gorm.DB, name string, rate decimal.Decimal) models.Astrologer {
	t.Helper()

	astrologer := models.Astrologer{
		Name:       name,
		Email:      name + "@example.com",
		Password:   "hashed",
		ChatRate:   rate,
		CallRate:   rate,
		LiveRate:   rate,
		IsOnline:   true,
		IsApproved: true,
	}
	require.NoError(t, db.Create(&astrologer).Error)
	return astrologer
}
