package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CallSession represents a one-to-one metered call between a user and an
// astrologer. PricePerMinute is snapshotted from the astrologer's current
// call rate at initiation so a mid-session rate change never affects billing.
type CallSession struct {
	gorm.Model
	UserID         uint            `json:"user_id" gorm:"index"`
	User           User            `json:"-" gorm:"foreignKey:UserID"`
	AstrologerID   uint            `json:"astrologer_id" gorm:"index"`
	Astrologer     Astrologer      `json:"-" gorm:"foreignKey:AstrologerID"`
	Status         string          `json:"status" gorm:"index"`
	ChannelName    string          `json:"channel_name"`
	PricePerMinute decimal.Decimal `json:"price_per_minute" gorm:"type:numeric(12,2)"`
	StartTime      *time.Time      `json:"start_time"`
	EndTime        *time.Time      `json:"end_time"`
	TotalMinutes   int             `json:"total_minutes"`
	TotalCost      decimal.Decimal `json:"total_cost" gorm:"type:numeric(12,2);default:0"`
}

// CallStatus constants
const (
	CallStatusInitiated = "initiated"
	CallStatusRinging   = "ringing"
	CallStatusAccepted  = "accepted"
	CallStatusOngoing   = "ongoing"
	CallStatusCompleted = "completed"
	CallStatusRejected  = "rejected"
	CallStatusCancelled = "cancelled"
)

// CallActiveStatuses are the non-terminal states; a user may hold at most one
// call in any of these at a time.
var CallActiveStatuses = []string{CallStatusInitiated, CallStatusRinging, CallStatusAccepted, CallStatusOngoing}

// CallBillableStatuses are the states from which EndCall may bill.
var CallBillableStatuses = []string{CallStatusAccepted, CallStatusOngoing}
