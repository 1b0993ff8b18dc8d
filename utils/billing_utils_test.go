package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBill_RoundsUpPartialMinutes(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(2)

	minutes, cost := CalculateBill(start, start.Add(61*time.Second), rate)
	assert.Equal(t, 2, minutes)
	assert.True(t, cost.Equal(decimal.NewFromInt(4)), "expected 4, got %s", cost)
}

func TestCalculateBill_ExactMinuteBoundary(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(3)

	minutes, cost := CalculateBill(start, start.Add(60*time.Second), rate)
	assert.Equal(t, 1, minutes)
	assert.True(t, cost.Equal(decimal.NewFromInt(3)))

	minutes, cost = CalculateBill(start, start.Add(120*time.Second), rate)
	assert.Equal(t, 2, minutes)
	assert.True(t, cost.Equal(decimal.NewFromInt(6)))
}

func TestCalculateBill_MinimumOneMinute(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.RequireFromString("5.50")

	// Instant hang-up still bills the first minute.
	minutes, cost := CalculateBill(start, start, rate)
	assert.Equal(t, 1, minutes)
	assert.True(t, cost.Equal(decimal.RequireFromString("5.50")))

	minutes, _ = CalculateBill(start, start.Add(5*time.Second), rate)
	assert.Equal(t, 1, minutes)
}

func TestCalculateBill_ClockSkewClampsToZeroDuration(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(10)

	// End before start must not produce a negative bill.
	minutes, cost := CalculateBill(start, start.Add(-30*time.Second), rate)
	assert.Equal(t, 1, minutes)
	assert.True(t, cost.Equal(decimal.NewFromInt(10)))
}

func TestCalculateBill_FractionalRateRounding(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.RequireFromString("2.333")

	minutes, cost := CalculateBill(start, start.Add(3*time.Minute), rate)
	assert.Equal(t, 3, minutes)
	// 2.333 * 3 = 6.999, rounded to 7.00
	assert.True(t, cost.Equal(decimal.RequireFromString("7.00")), "got %s", cost)
}

func TestToPaise(t *testing.T) {
	assert.Equal(t, int64(50000), ToPaise(decimal.NewFromInt(500)))
	assert.Equal(t, int64(49950), ToPaise(decimal.RequireFromString("499.50")))
	assert.Equal(t, int64(1), ToPaise(decimal.RequireFromString("0.01")))
}
