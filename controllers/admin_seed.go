package controllers

import (
	"os"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
)

// CreateSampleAdmin ensures at least one admin account exists so the admin
// endpoints are reachable on a fresh database. Credentials come from
// ADMIN_EMAIL and ADMIN_PASSWORD, with development defaults.
func CreateSampleAdmin() error {
	var count int64
	if err := config.DB.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@astroconnect.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Email:     email,
		Password:  hashed,
		FirstName: "Default",
		LastName:  "Admin",
		IsActive:  true,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		return err
	}

	utils.LogInfo("Created sample admin account: %s", email)
	return nil
}
