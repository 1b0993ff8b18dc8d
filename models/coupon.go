package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon defines a recharge discount and its usage caps.
type Coupon struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"uniqueIndex" json:"code"`
	Type         string          `json:"type"` // "flat" or "percent"
	Value        decimal.Decimal `json:"value" gorm:"type:numeric(12,2)"`
	MinRecharge  decimal.Decimal `json:"min_recharge" gorm:"type:numeric(12,2);default:0"`
	MaxRecharge  decimal.Decimal `json:"max_recharge" gorm:"type:numeric(12,2);default:0"`
	MaxDiscount  decimal.Decimal `json:"max_discount" gorm:"type:numeric(12,2);default:0"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidUntil   time.Time       `json:"valid_until"`
	UsageLimit   int             `json:"usage_limit"`
	UsedCount    int             `json:"used_count"`
	PerUserLimit int             `json:"per_user_limit" gorm:"default:1"`
	UserSegment  string          `json:"user_segment"` // all, new_users, existing_users
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// CouponUsage records one application attempt. It is created pending with the
// recharge's gateway order id and flipped to success only when the payment
// completes, so an abandoned order never burns a use.
type CouponUsage struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `json:"user_id" gorm:"index"`
	CouponID        uint            `json:"coupon_id" gorm:"index"`
	Coupon          Coupon          `json:"-" gorm:"foreignKey:CouponID"`
	RazorpayOrderID string          `json:"razorpay_order_id" gorm:"uniqueIndex"`
	RechargeAmount  decimal.Decimal `json:"recharge_amount" gorm:"type:numeric(12,2)"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:numeric(12,2)"`
	Status          string          `json:"status"` // pending, success, failed
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CouponType constants
const (
	CouponTypeFlat    = "flat"
	CouponTypePercent = "percent"
)

// CouponSegment constants
const (
	CouponSegmentAll      = "all"
	CouponSegmentNew      = "new_users"
	CouponSegmentExisting = "existing_users"
)

// CouponUsageStatus constants
const (
	CouponUsagePending = "pending"
	CouponUsageSuccess = "success"
	CouponUsageFailed  = "failed"
)

// NewUserWindowDays is the registration age cutoff for the new_users segment.
const NewUserWindowDays = 7
