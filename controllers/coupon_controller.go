package controllers

import (
	"strings"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PreviewCoupon resolves a coupon against a recharge amount without creating
// any order, so the client can show the discounted total before paying.
func PreviewCoupon(c *gin.Context) {
	utils.LogInfo("PreviewCoupon called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		Code   string          `json:"code" binding:"required"`
		Amount decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. code and amount are required", err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		utils.BadRequest(c, "Amount must be positive", nil)
		return
	}

	var coupon models.Coupon
	if err := config.DB.Where("code = ?", strings.ToUpper(req.Code)).First(&coupon).Error; err != nil {
		utils.NotFound(c, "Coupon not found")
		return
	}

	var usageCount int64
	if err := config.DB.Model(&models.CouponUsage{}).
		Where("user_id = ? AND coupon_id = ? AND status = ?", user.ID, coupon.ID, models.CouponUsageSuccess).
		Count(&usageCount).Error; err != nil {
		utils.LogError("Failed to count coupon usage for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to validate coupon", nil)
		return
	}

	discount, err := utils.ResolveCouponDiscount(&coupon, req.Amount, int(usageCount), user.AgeDays(time.Now()), time.Now())
	if err != nil {
		utils.LogError("Coupon %s rejected for user ID: %d: %v", coupon.Code, user.ID, err)
		utils.BadRequest(c, err.Error(), nil)
		return
	}

	utils.Success(c, "Coupon is applicable", gin.H{
		"code":           coupon.Code,
		"discount":       discount.StringFixed(2),
		"payable_amount": req.Amount.Sub(discount).StringFixed(2),
	})
}

// AdminCreateCoupon adds a recharge coupon.
func AdminCreateCoupon(c *gin.Context) {
	utils.LogInfo("AdminCreateCoupon called")
	if _, exists := c.Get("admin"); !exists {
		utils.Unauthorized(c, "Admin not found")
		return
	}

	var req struct {
		Code         string          `json:"code" binding:"required"`
		Type         string          `json:"type" binding:"required,oneof=flat percent"`
		Value        decimal.Decimal `json:"value" binding:"required"`
		MinRecharge  decimal.Decimal `json:"min_recharge"`
		MaxRecharge  decimal.Decimal `json:"max_recharge"`
		MaxDiscount  decimal.Decimal `json:"max_discount"`
		ValidFrom    time.Time       `json:"valid_from" binding:"required"`
		ValidUntil   time.Time       `json:"valid_until" binding:"required"`
		UsageLimit   int             `json:"usage_limit"`
		PerUserLimit int             `json:"per_user_limit"`
		UserSegment  string          `json:"user_segment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if !req.Value.IsPositive() {
		utils.BadRequest(c, "Coupon value must be positive", nil)
		return
	}
	if req.UserSegment == "" {
		req.UserSegment = models.CouponSegmentAll
	}

	coupon := models.Coupon{
		Code:         strings.ToUpper(req.Code),
		Type:         req.Type,
		Value:        req.Value,
		MinRecharge:  req.MinRecharge,
		MaxRecharge:  req.MaxRecharge,
		MaxDiscount:  req.MaxDiscount,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		UsageLimit:   req.UsageLimit,
		PerUserLimit: req.PerUserLimit,
		UserSegment:  req.UserSegment,
		Active:       true,
	}
	if err := config.DB.Create(&coupon).Error; err != nil {
		utils.LogError("Failed to create coupon %s: %v", coupon.Code, err)
		utils.Conflict(c, "Coupon code already exists", nil)
		return
	}

	utils.LogInfo("Coupon %s created", coupon.Code)
	utils.Created(c, "Coupon created successfully", coupon)
}
