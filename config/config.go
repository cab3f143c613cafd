package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the bot service.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string

	// Bcrypt hash of the staff access key used to obtain a staff token.
	StaffAccessKeyHash string

	// Cloudflare R2 bucket where rendered bracket images are published.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables. A .env file is loaded
// when present (local development); a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecretKey:       os.Getenv("JWT_SECRET_KEY"),
		StaffAccessKeyHash: os.Getenv("STAFF_ACCESS_KEY_HASH"),
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	for _, required := range []struct {
		key, value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"JWT_SECRET_KEY", cfg.JWTSecretKey},
		{"STAFF_ACCESS_KEY_HASH", cfg.StaffAccessKeyHash},
		{"R2_ACCOUNT_ID", cfg.R2AccountID},
		{"R2_ACCESS_KEY_ID", cfg.R2AccessKeyID},
		{"R2_SECRET_ACCESS_KEY", cfg.R2SecretAccessKey},
		{"R2_BUCKET_NAME", cfg.R2BucketName},
		{"R2_PUBLIC_BASE_URL", cfg.R2PublicBaseURL},
	} {
		if required.value == "" {
			return nil, fmt.Errorf("%s environment variable is not set", required.key)
		}
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	return cfg, nil
}
