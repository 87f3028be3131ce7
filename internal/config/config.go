package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	StorageBackend  string
	StoragePath     string
	S3Bucket        string
	S3Endpoint      string
	AWSRegion       string
	SignedURLExpiry time.Duration
	UploadMaxSize   int64

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Timezone decides where a calendar day starts for streak bookkeeping.
	Timezone string

	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	Debug bool
}

// Load reads configuration from an optional .env file and environment
// variables, falling back to sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./readquest.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		StoragePath:     getEnv("STORAGE_PATH", "./data/audio"),
		S3Bucket:        getEnv("S3_BUCKET", "audio-recordings"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		SignedURLExpiry: getDuration("SIGNED_URL_EXPIRY", time.Hour),
		UploadMaxSize:   getInt64("UPLOAD_MAX_SIZE", 50*1024*1024), // 50MB

		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		Timezone: getEnv("TIMEZONE", "UTC"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "ReadQuest"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		Debug: getBool("DEBUG", false),
	}
}

// Location resolves the configured time zone, defaulting to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid duration for %s: %q", key, value)
		return defaultValue
	}
	return d
}

func getInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid integer for %s: %q", key, value)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
