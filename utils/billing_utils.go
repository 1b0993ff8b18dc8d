package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateBill converts an elapsed session window and a per-minute rate into
// billable minutes and cost. Partial minutes always round up, so a 61 second
// window bills 2 minutes. A session that connected bills at least 1 minute
// even when start and end coincide.
func CalculateBill(start, end time.Time, ratePerMinute decimal.Decimal) (int, decimal.Decimal) {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	minutes := int((seconds + 59) / 60)
	if minutes == 0 {
		minutes = 1
	}
	cost := ratePerMinute.Mul(decimal.NewFromInt(int64(minutes)))
	return minutes, cost.Round(2)
}

// ToPaise converts a rupee amount to integer paise for the Razorpay API.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
