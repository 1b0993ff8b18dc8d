package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet represents a user's prepaid wallet. Balance is mutated only through
// the ledger helpers in the controllers package, never written directly.
type Wallet struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `json:"user_id" gorm:"uniqueIndex"`
	Balance       decimal.Decimal `json:"balance" gorm:"type:numeric(12,2);default:0"`
	TotalRecharge decimal.Decimal `json:"total_recharge" gorm:"type:numeric(14,2);default:0"`
	TotalSpent    decimal.Decimal `json:"total_spent" gorm:"type:numeric(14,2);default:0"`
	IsActive      bool            `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// WalletTransaction is an immutable, append-only ledger record. One row is
// written for every balance mutation with the balance captured before and
// after. RazorpayOrderID is unique across all rows and acts as the
// idempotency key for recharge reconciliation.
type WalletTransaction struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	WalletID          uint            `json:"wallet_id" gorm:"index"`
	Wallet            Wallet          `json:"-" gorm:"foreignKey:WalletID"`
	UserID            uint            `json:"user_id" gorm:"index"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	Type              string          `json:"type"`   // credit, debit
	Status            string          `json:"status"` // pending, completed, failed, refunded
	PaymentMethod     string          `json:"payment_method"`
	RazorpayOrderID   *string         `json:"razorpay_order_id" gorm:"uniqueIndex"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpaySignature string          `json:"-"`
	BalanceBefore     decimal.Decimal `json:"balance_before" gorm:"type:numeric(12,2)"`
	BalanceAfter      decimal.Decimal `json:"balance_after" gorm:"type:numeric(12,2)"`
	Description       string          `json:"description"`
	Reference         string          `json:"reference"`
	Metadata          string          `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TransactionType constants
const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// TransactionStatus constants
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

// PaymentMethod constants
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodWallet   = "wallet"
	PaymentMethodAdmin    = "admin_adjustment"
)
