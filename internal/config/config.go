package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Database (Supabase Postgres)
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"medinotes"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// Email verification links point at the web client, which posts the token back.
	EmailVerifyExpiry time.Duration `env:"EMAIL_VERIFY_EXPIRY" envDefault:"24h"`
	EmailVerifyURL    string        `env:"EMAIL_VERIFY_URL" envDefault:"http://localhost:3000/verify"`

	// Role allow-lists. Owners always win; the rest only back the stored role
	// when the profile store cannot be reached.
	OwnerEmails     []string `env:"OWNER_EMAILS" envSeparator:","`
	AdminEmails     []string `env:"ADMIN_EMAILS" envSeparator:","`
	ModeratorEmails []string `env:"MODERATOR_EMAILS" envSeparator:","`
	UploaderEmails  []string `env:"UPLOADER_EMAILS" envSeparator:","`

	// Object storage
	StorageBackend    string `env:"STORAGE_BACKEND" envDefault:"s3"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Bucket          string `env:"S3_BUCKET" envDefault:"files"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`

	GitHubToken      string `env:"GITHUB_TOKEN"`
	GitHubOwner      string `env:"GITHUB_OWNER"`
	GitHubRepo       string `env:"GITHUB_REPO"`
	GitHubBranch     string `env:"GITHUB_BRANCH" envDefault:"main"`
	GitHubAPIURL     string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	GitHubCDNBaseURL string `env:"GITHUB_CDN_BASE_URL" envDefault:"https://cdn.jsdelivr.net/gh"`

	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	CurriculumPath string `env:"CURRICULUM_PATH" envDefault:"curriculum.json"`

	// Observability
	LogRetention time.Duration `env:"LOG_RETENTION" envDefault:"720h"`
	SentryDSN    string        `env:"SENTRY_DSN"`
	AppEnv       string        `env:"APP_ENV" envDefault:"development"`

	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first missing setting the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	switch c.StorageBackend {
	case "s3":
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required for the s3 storage backend")
		}
		// Stored file URLs must not expire, so downloads go through a public bucket.
		if c.S3PublicBaseURL == "" {
			return fmt.Errorf("S3_PUBLIC_BASE_URL is required for the s3 storage backend")
		}
	case "github":
		if c.GitHubToken == "" || c.GitHubOwner == "" || c.GitHubRepo == "" {
			return fmt.Errorf("GITHUB_TOKEN, GITHUB_OWNER and GITHUB_REPO are required for the github storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}
