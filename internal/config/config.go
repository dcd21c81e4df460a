package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" envDefault:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" envDefault:"300"`
}

// SQLiteConfig holds settings for the embedded single-node session store.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/signflow.db"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// SigningConfig selects and tunes the document signer and placement locator.
type SigningConfig struct {
	// Mode is "local" (in-process key) or "remote" (HTTP signing service).
	Mode          string        `env:"SIGNING_MODE" envDefault:"local"`
	KeyFile       string        `env:"SIGNING_KEY_FILE"`
	RemoteURL     string        `env:"SIGNING_REMOTE_URL"`
	LocatorURL    string        `env:"LOCATOR_URL"`
	RemoteTimeout time.Duration `env:"SIGNING_REMOTE_TIMEOUT" envDefault:"60s"`
	MaxConcurrent int64         `env:"SIGNING_MAX_CONCURRENT" envDefault:"4"`
	StampTemplate string        `env:"SIGNING_STAMP_TEMPLATE" envDefault:"{{{name}}}\n{{{email}}}\n{{{timestamp}}}"`
	MarkerFormat  string        `env:"SIGNING_MARKER_FORMAT" envDefault:"Authorised Signature %d"`
	FieldWidth    float64       `env:"SIGNING_FIELD_WIDTH" envDefault:"180"`
	FieldHeight   float64       `env:"SIGNING_FIELD_HEIGHT" envDefault:"50"`
	ServiceName   string        `env:"SIGNING_SERVICE_NAME" envDefault:"Document Signing Service"`
	PresignExpiry time.Duration `env:"DOWNLOAD_PRESIGN_EXPIRY" envDefault:"15m"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string `env:"APP_HOST" envDefault:"localhost:8080"`
	Port     string `env:"PORT" envDefault:"8080"`
	APIKey   string `env:"API_KEY"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	TimeZone string `env:"APP_TIMEZONE" envDefault:"UTC"`
	// StoreDriver is "postgres" or "sqlite".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	Database DatabaseConfig
	SQLite   SQLiteConfig
	MinIO    MinIOConfig
	Signing  SigningConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StoreDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.Signing.Mode {
	case "local", "remote":
	default:
		return nil, fmt.Errorf("unsupported SIGNING_MODE %q", cfg.Signing.Mode)
	}
	return &cfg, nil
}

// Location resolves the configured time zone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
