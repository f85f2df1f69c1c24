package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	AdminChatID   int64

	// Bot mode configuration
	WebhookMode   bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL    string // Public base URL for webhook (required if WebhookMode is true)
	WebhookSecret string // Shared secret expected on the notification ingress

	// External AI service
	APIBaseURL         string
	TrainEndpoint      string
	GenerateEndpoint   string
	ModelsEndpoint     string
	CreditsEndpoint    string
	HTTPTimeoutSeconds int

	// Training batch limits
	MaxPhotos         int
	PhotoQuality      int
	PhotoMaxDimension int
	NumImages         int

	// Postgres
	DatabaseDSN string
	UseMockDB   bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin chat for error escalation (optional)
	if adminStr := os.Getenv("ADMIN_CHAT_ID"); adminStr != "" {
		adminID, err := strconv.ParseInt(adminStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
		}
		config.AdminChatID = adminID
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}
	config.WebhookSecret = os.Getenv("WEBHOOK_SECRET")

	// External AI service (required)
	config.APIBaseURL = os.Getenv("API_BASE_URL")
	if config.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	config.TrainEndpoint = getEnv("API_TRAIN_PATH", "/api/train")
	config.GenerateEndpoint = getEnv("API_GENERATE_PATH", "/api/generate")
	config.ModelsEndpoint = getEnv("API_MODELS_PATH", "/api/models")
	config.CreditsEndpoint = getEnv("API_CREDITS_PATH", "/api/credits")

	var err error
	config.HTTPTimeoutSeconds, err = getEnvInt("HTTP_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	config.MaxPhotos, err = getEnvInt("MAX_PHOTOS", 10)
	if err != nil {
		return nil, err
	}
	config.PhotoQuality, err = getEnvInt("PHOTO_QUALITY", 90)
	if err != nil {
		return nil, err
	}
	config.PhotoMaxDimension, err = getEnvInt("PHOTO_MAX_DIMENSION", 1024)
	if err != nil {
		return nil, err
	}
	config.NumImages, err = getEnvInt("NUM_IMAGES", 4)
	if err != nil {
		return nil, err
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// Postgres DSN (required if not using mock)
	if !config.UseMockDB {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when USE_MOCK_DB is not set")
		}
	}

	return config, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
