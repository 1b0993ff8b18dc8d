package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChatSession is a reusable conversation between a user and an astrologer.
// There is exactly one row per (user, astrologer) pair; ending a chat closes
// the current billing window and the same session is reactivated for the next
// conversation. TotalMinutes/TotalCost accumulate across windows.
type ChatSession struct {
	gorm.Model
	UserID         uint            `json:"user_id" gorm:"uniqueIndex:idx_chat_user_astrologer"`
	User           User            `json:"-" gorm:"foreignKey:UserID"`
	AstrologerID   uint            `json:"astrologer_id" gorm:"uniqueIndex:idx_chat_user_astrologer"`
	Astrologer     Astrologer      `json:"-" gorm:"foreignKey:AstrologerID"`
	Status         string          `json:"status" gorm:"index"`
	RequestStatus  string          `json:"request_status"`
	PricePerMinute decimal.Decimal `json:"price_per_minute" gorm:"type:numeric(12,2)"`
	StartTime      *time.Time      `json:"start_time"`
	EndTime        *time.Time      `json:"end_time"`
	TotalMinutes   int             `json:"total_minutes"`
	TotalCost      decimal.Decimal `json:"total_cost" gorm:"type:numeric(14,2);default:0"`
	Messages       []ChatMessage   `json:"-" gorm:"foreignKey:SessionID"`
}

// ChatMessage is a single message inside a chat session.
type ChatMessage struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  uint           `json:"session_id" gorm:"index"`
	SenderType string         `json:"sender_type"` // user, astrologer
	SenderID   uint           `json:"sender_id"`
	Body       string         `json:"body"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChatStatus constants
const (
	ChatStatusActive = "active"
	ChatStatusEnded  = "ended"
)

// ChatRequestStatus constants gate whether the astrologer side may respond.
const (
	ChatRequestPending  = "pending"
	ChatRequestApproved = "approved"
	ChatRequestRejected = "rejected"
)

// ChatSender constants
const (
	ChatSenderUser       = "user"
	ChatSenderAstrologer = "astrologer"
)
