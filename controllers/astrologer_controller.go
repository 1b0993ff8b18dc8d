package controllers

import (
	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
)

// ListAstrologers returns approved astrologers with their current rates.
func ListAstrologers(c *gin.Context) {
	utils.LogInfo("ListAstrologers called")

	pagination := utils.NewPagination(c)

	query := config.DB.Model(&models.Astrologer{}).
		Where("is_approved = ? AND is_blocked = ?", true, false)
	if c.Query("online") == "true" {
		query = query.Where("is_online = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError("Failed to count astrologers: %v", err)
		utils.InternalServerError(c, "Failed to fetch astrologers", nil)
		return
	}
	pagination.SetTotal(total)

	var astrologers []models.Astrologer
	if err := query.Order("rating DESC").
		Limit(pagination.Limit).Offset(pagination.Offset).
		Find(&astrologers).Error; err != nil {
		utils.LogError("Failed to fetch astrologers: %v", err)
		utils.InternalServerError(c, "Failed to fetch astrologers", nil)
		return
	}

	utils.SendPaginatedResponse(c, astrologers, pagination)
}

// GetAstrologer returns one astrologer's public profile.
func GetAstrologer(c *gin.Context) {
	var astrologer models.Astrologer
	if err := config.DB.Where("id = ? AND is_approved = ?", c.Param("id"), true).
		First(&astrologer).Error; err != nil {
		utils.NotFound(c, "Astrologer not found")
		return
	}
	utils.Success(c, "Astrologer retrieved successfully", astrologer)
}

// UpdateAvailability lets an astrologer toggle their online flag.
func UpdateAvailability(c *gin.Context) {
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	var req struct {
		Online *bool `json:"online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. online is required", err.Error())
		return
	}

	if err := config.DB.Model(&models.Astrologer{}).Where("id = ?", astrologer.ID).
		Update("is_online", *req.Online).Error; err != nil {
		utils.LogError("Failed to update availability for astrologer ID: %d: %v", astrologer.ID, err)
		utils.InternalServerError(c, "Failed to update availability", nil)
		return
	}

	utils.LogInfo("Astrologer ID: %d is now online=%t", astrologer.ID, *req.Online)
	utils.Success(c, "Availability updated", gin.H{"online": *req.Online})
}
