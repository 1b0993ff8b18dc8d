package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LiveSession is an astrologer-hosted broadcast many users can join. Each
// viewer is billed independently through LiveParticipant records.
type LiveSession struct {
	gorm.Model
	AstrologerID   uint              `json:"astrologer_id" gorm:"index"`
	Astrologer     Astrologer        `json:"-" gorm:"foreignKey:AstrologerID"`
	Title          string            `json:"title"`
	Status         string            `json:"status" gorm:"index"`
	ChannelName    string            `json:"channel_name"`
	PricePerMinute decimal.Decimal   `json:"price_per_minute" gorm:"type:numeric(12,2)"`
	ScheduledAt    *time.Time        `json:"scheduled_at"`
	StartedAt      *time.Time        `json:"started_at"`
	EndedAt        *time.Time        `json:"ended_at"`
	CurrentViewers int               `json:"current_viewers" gorm:"default:0"`
	MaxViewers     int               `json:"max_viewers" gorm:"default:0"`
	TotalEarnings  decimal.Decimal   `json:"total_earnings" gorm:"type:numeric(14,2);default:0"`
	Participants   []LiveParticipant `json:"-" gorm:"foreignKey:SessionID"`
}

// LiveParticipant tracks one viewer's membership in a live session. A viewer
// may join and leave repeatedly within the same session; minutes and cost
// accumulate across cycles. IsActive marks current membership and is the
// idempotency guard for leave/forced-end billing.
type LiveParticipant struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SessionID      uint            `json:"session_id" gorm:"uniqueIndex:idx_live_session_user"`
	UserID         uint            `json:"user_id" gorm:"uniqueIndex:idx_live_session_user"`
	IsActive       bool            `json:"is_active" gorm:"default:false"`
	PricePerMinute decimal.Decimal `json:"price_per_minute" gorm:"type:numeric(12,2)"`
	JoinedAt       *time.Time      `json:"joined_at"`
	LeftAt         *time.Time      `json:"left_at"`
	TotalMinutes   int             `json:"total_minutes"`
	TotalCost      decimal.Decimal `json:"total_cost" gorm:"type:numeric(12,2);default:0"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LiveStatus constants
const (
	LiveStatusScheduled = "scheduled"
	LiveStatusLive      = "live"
	LiveStatusEnded     = "ended"
	LiveStatusCancelled = "cancelled"
)
