package utils

import (
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/shopspring/decimal"
)

// CouponRejection explains why a coupon could not be applied.
type CouponRejection struct {
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *CouponRejection) Error() string {
	return e.Reason
}

// ResolveCouponDiscount maps (coupon, recharge amount, user history) to a
// discount amount. Pure function: usage counters are incremented only when
// the corresponding payment completes, never here.
//
// Checks run in order: active flag, validity window, min/max recharge bounds,
// global usage cap, per-user usage cap, segment eligibility. Percent coupons
// are capped by MaxDiscount when set; the final discount never exceeds the
// recharge amount itself.
func ResolveCouponDiscount(coupon *models.Coupon, rechargeAmount decimal.Decimal, userUsageCount, userAgeDays int, now time.Time) (decimal.Decimal, error) {
	if !coupon.Active {
		return decimal.Zero, &CouponRejection{Reason: "Coupon is not active"}
	}
	if now.Before(coupon.ValidFrom) {
		return decimal.Zero, &CouponRejection{Reason: "Coupon is not valid yet"}
	}
	if now.After(coupon.ValidUntil) {
		return decimal.Zero, &CouponRejection{Reason: "Coupon has expired"}
	}
	if rechargeAmount.LessThan(coupon.MinRecharge) {
		return decimal.Zero, &CouponRejection{Reason: "Recharge amount is below the minimum for this coupon"}
	}
	if coupon.MaxRecharge.IsPositive() && rechargeAmount.GreaterThan(coupon.MaxRecharge) {
		return decimal.Zero, &CouponRejection{Reason: "Recharge amount is above the maximum for this coupon"}
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return decimal.Zero, &CouponRejection{Reason: "Coupon usage limit reached"}
	}
	if coupon.PerUserLimit > 0 && userUsageCount >= coupon.PerUserLimit {
		return decimal.Zero, &CouponRejection{Reason: "You have already used this coupon"}
	}

	switch coupon.UserSegment {
	case models.CouponSegmentNew:
		if userAgeDays > models.NewUserWindowDays {
			return decimal.Zero, &CouponRejection{Reason: "Coupon is only valid for new users"}
		}
	case models.CouponSegmentExisting:
		if userAgeDays <= models.NewUserWindowDays {
			return decimal.Zero, &CouponRejection{Reason: "Coupon is only valid for existing users"}
		}
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercent:
		discount = rechargeAmount.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount) {
			discount = coupon.MaxDiscount
		}
	case models.CouponTypeFlat:
		discount = coupon.Value
	default:
		return decimal.Zero, &CouponRejection{Reason: "Unknown coupon type"}
	}

	// Never discount past the recharge amount itself.
	if discount.GreaterThan(rechargeAmount) {
		discount = rechargeAmount
	}
	return discount, nil
}
