package controllers

import (
	"strings"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
)

// RegisterUser creates a user account.
func RegisterUser(c *gin.Context) {
	utils.LogInfo("RegisterUser called")

	var req struct {
		Username string `json:"username" binding:"required,min=3"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var existing int64
	config.DB.Model(&models.User{}).
		Where("email = ? OR username = ?", strings.ToLower(req.Email), req.Username).
		Count(&existing)
	if existing > 0 {
		utils.Conflict(c, "An account with this email or username already exists", nil)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.LogError("Failed to hash password: %v", err)
		utils.InternalServerError(c, "Failed to create account", nil)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: hash,
		Phone:    req.Phone,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		utils.LogError("Failed to create user: %v", err)
		utils.InternalServerError(c, "Failed to create account", nil)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, "user")
	if err != nil {
		utils.LogError("Failed to generate token for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	utils.LogInfo("User registered - ID: %d", user.ID)
	utils.Created(c, "Account created successfully", gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// LoginUser authenticates a user and issues a JWT.
func LoginUser(c *gin.Context) {
	utils.LogInfo("LoginUser called")

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		utils.LogError("Failed login attempt for user ID: %d", user.ID)
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if user.IsBlocked {
		utils.Forbidden(c, "Account is blocked")
		return
	}

	config.DB.Model(&user).Update("last_login_at", time.Now())

	token, err := utils.GenerateToken(user.ID, user.Email, "user")
	if err != nil {
		utils.LogError("Failed to generate token for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	utils.LogInfo("User logged in - ID: %d", user.ID)
	utils.Success(c, "Logged in successfully", gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// LoginAstrologer authenticates an astrologer account.
func LoginAstrologer(c *gin.Context) {
	utils.LogInfo("LoginAstrologer called")

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var astrologer models.Astrologer
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&astrologer).Error; err != nil {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, astrologer.Password) {
		utils.LogError("Failed login attempt for astrologer ID: %d", astrologer.ID)
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if astrologer.IsBlocked {
		utils.Forbidden(c, "Account is blocked")
		return
	}
	if !astrologer.IsApproved {
		utils.Forbidden(c, "Account is awaiting approval")
		return
	}

	token, err := utils.GenerateToken(astrologer.ID, astrologer.Email, "astrologer")
	if err != nil {
		utils.LogError("Failed to generate token for astrologer ID: %d: %v", astrologer.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	utils.LogInfo("Astrologer logged in - ID: %d", astrologer.ID)
	utils.Success(c, "Logged in successfully", gin.H{
		"token": token,
		"astrologer": gin.H{
			"id":    astrologer.ID,
			"name":  astrologer.Name,
			"email": astrologer.Email,
		},
	})
}

// LoginAdmin authenticates an administrator.
func LoginAdmin(c *gin.Context) {
	utils.LogInfo("LoginAdmin called")

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var admin models.Admin
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&admin).Error; err != nil {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, admin.Password) {
		utils.LogError("Failed login attempt for admin ID: %d", admin.ID)
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if !admin.IsActive {
		utils.Forbidden(c, "Admin account is inactive")
		return
	}

	token, err := utils.GenerateToken(admin.ID, admin.Email, "admin")
	if err != nil {
		utils.LogError("Failed to generate token for admin ID: %d: %v", admin.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	config.DB.Model(&admin).UpdateColumn("last_login", time.Now())

	utils.LogInfo("Admin logged in - ID: %d", admin.ID)
	utils.Success(c, "Logged in successfully", gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
		},
	})
}
