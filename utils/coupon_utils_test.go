package utils

import (
	"testing"
	"time"

	"github.com/astroconnect/backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPercentCoupon() *models.Coupon {
	now := time.Now()
	return &models.Coupon{
		Code:         "FESTIVE10",
		Type:         models.CouponTypePercent,
		Value:        decimal.NewFromInt(10),
		MinRecharge:  decimal.NewFromInt(100),
		MaxDiscount:  decimal.NewFromInt(50),
		ValidFrom:    now.Add(-24 * time.Hour),
		ValidUntil:   now.Add(24 * time.Hour),
		UsageLimit:   100,
		PerUserLimit: 1,
		UserSegment:  models.CouponSegmentAll,
		Active:       true,
	}
}

func TestResolveCouponDiscount_PercentWithCap(t *testing.T) {
	coupon := validPercentCoupon()
	now := time.Now()

	// 10% of 300 = 30, under the 50 cap.
	discount, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
	assert.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(30)), "got %s", discount)

	// 10% of 1000 = 100, capped at 50.
	discount, err = ResolveCouponDiscount(coupon, decimal.NewFromInt(1000), 0, 30, now)
	assert.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(50)), "got %s", discount)
}

func TestResolveCouponDiscount_TenPercentCappedAtTwenty(t *testing.T) {
	coupon := validPercentCoupon()
	coupon.MaxDiscount = decimal.NewFromInt(20)
	now := time.Now()

	// 10% of 500 = 50, capped at 20 → payable 480.
	discount, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(500), 0, 30, now)
	assert.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(20)), "got %s", discount)

	// 10% of 100 = 10, under the cap → payable 90.
	discount, err = ResolveCouponDiscount(coupon, decimal.NewFromInt(100), 0, 30, now)
	assert.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(10)), "got %s", discount)
}

func TestResolveCouponDiscount_FlatNeverExceedsRecharge(t *testing.T) {
	now := time.Now()
	coupon := &models.Coupon{
		Code:       "FLAT200",
		Type:       models.CouponTypeFlat,
		Value:      decimal.NewFromInt(200),
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		Active:     true,
	}

	discount, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(150), 0, 30, now)
	assert.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(150)), "got %s", discount)
}

func TestResolveCouponDiscount_Rejections(t *testing.T) {
	now := time.Now()

	t.Run("inactive", func(t *testing.T) {
		coupon := validPercentCoupon()
		coupon.Active = false
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
		assert.ErrorContains(t, err, "not active")
	})

	t.Run("expired", func(t *testing.T) {
		coupon := validPercentCoupon()
		coupon.ValidUntil = now.Add(-time.Hour)
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
		assert.ErrorContains(t, err, "expired")
	})

	t.Run("not yet valid", func(t *testing.T) {
		coupon := validPercentCoupon()
		coupon.ValidFrom = now.Add(time.Hour)
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
		assert.ErrorContains(t, err, "not valid yet")
	})

	t.Run("below minimum recharge", func(t *testing.T) {
		coupon := validPercentCoupon()
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(50), 0, 30, now)
		assert.ErrorContains(t, err, "below the minimum")
	})

	t.Run("above maximum recharge", func(t *testing.T) {
		coupon := validPercentCoupon()
		coupon.MaxRecharge = decimal.NewFromInt(500)
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(600), 0, 30, now)
		assert.ErrorContains(t, err, "above the maximum")
	})

	t.Run("global usage limit reached", func(t *testing.T) {
		coupon := validPercentCoupon()
		coupon.UsageLimit = 5
		coupon.UsedCount = 5
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
		assert.ErrorContains(t, err, "usage limit")
	})

	t.Run("per-user limit reached", func(t *testing.T) {
		coupon := validPercentCoupon()
		_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 1, 30, now)
		assert.ErrorContains(t, err, "already used")
	})
}

func TestResolveCouponDiscount_UserSegments(t *testing.T) {
	now := time.Now()

	coupon := validPercentCoupon()
	coupon.UserSegment = models.CouponSegmentNew

	// Registered 3 days ago: eligible.
	_, err := ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 3, now)
	assert.NoError(t, err)

	// Registered 30 days ago: not a new user anymore.
	_, err = ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
	assert.ErrorContains(t, err, "new users")

	coupon.UserSegment = models.CouponSegmentExisting
	_, err = ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 3, now)
	assert.ErrorContains(t, err, "existing users")

	_, err = ResolveCouponDiscount(coupon, decimal.NewFromInt(300), 0, 30, now)
	assert.NoError(t, err)
}
