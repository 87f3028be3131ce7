package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "SIGNED_URL_EXPIRY", "UPLOAD_MAX_SIZE", "DEBUG", "STORAGE_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.SignedURLExpiry != time.Hour {
		t.Errorf("SignedURLExpiry = %v, want 1h", cfg.SignedURLExpiry)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("StorageBackend = %q, want local", cfg.StorageBackend)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SIGNED_URL_EXPIRY", "30m")
	t.Setenv("UPLOAD_MAX_SIZE", "1024")
	t.Setenv("DEBUG", "true")
	t.Setenv("STORAGE_BACKEND", "S3")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.SignedURLExpiry != 30*time.Minute {
		t.Errorf("SignedURLExpiry = %v, want 30m", cfg.SignedURLExpiry)
	}
	if cfg.UploadMaxSize != 1024 {
		t.Errorf("UploadMaxSize = %d, want 1024", cfg.UploadMaxSize)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want s3", cfg.StorageBackend)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIGNED_URL_EXPIRY", "soon")
	t.Setenv("UPLOAD_MAX_SIZE", "-5")

	cfg := Load()

	if cfg.SignedURLExpiry != time.Hour {
		t.Errorf("SignedURLExpiry = %v, want 1h fallback", cfg.SignedURLExpiry)
	}
	if cfg.UploadMaxSize != 50*1024*1024 {
		t.Errorf("UploadMaxSize = %d, want default", cfg.UploadMaxSize)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Error("unknown timezone should fall back to UTC")
	}

	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}
