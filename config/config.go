package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	JWTSecret             string
	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string
	Port                  string
	Env                   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	config := &Config{
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                os.Getenv("DB_PORT"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		Port:                  os.Getenv("PORT"),
		Env:                   os.Getenv("ENV"),
	}

	return config, nil
}
