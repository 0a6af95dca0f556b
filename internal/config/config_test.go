package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_PUBLIC_BASE_URL", "http://localhost:9000/files")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.JWTAccessExpiry != 15*time.Minute {
		t.Fatalf("access expiry = %v, want %v", cfg.JWTAccessExpiry, 15*time.Minute)
	}
	if cfg.EmailVerifyExpiry != 24*time.Hour {
		t.Fatalf("verify expiry = %v, want %v", cfg.EmailVerifyExpiry, 24*time.Hour)
	}
	if cfg.MaxUploadBytes != 25<<20 {
		t.Fatalf("max upload = %d, want %d", cfg.MaxUploadBytes, 25<<20)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEmailLists(t *testing.T) {
	t.Setenv("OWNER_EMAILS", "root@medicaps.ac.in,dean@medicaps.ac.in")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.OwnerEmails) != 2 {
		t.Fatalf("owner emails = %v, want 2 entries", cfg.OwnerEmails)
	}
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := &Config{StorageBackend: "s3", S3Endpoint: "http://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing JWT_SECRET error")
	}

	cfg.JWTSecret = "s"
	cfg.DBPassword = "p"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing S3_PUBLIC_BASE_URL error")
	}
	cfg.S3PublicBaseURL = "https://x/public/files"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate s3: %v", err)
	}

	cfg.StorageBackend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown backend error")
	}

	cfg.StorageBackend = "github"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing github settings error")
	}
}
