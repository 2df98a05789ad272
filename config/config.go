package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Analytics AnalyticsConfig
	Platform  PlatformConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string `env:"PORT" envDefault:"8080"`
	ReadTimeout        int    `env:"READ_TIMEOUT_SEC" envDefault:"30"`
	WriteTimeout       int    `env:"WRITE_TIMEOUT_SEC" envDefault:"30"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"` // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"` // if set, used as-is
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"events"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxConns           int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns           int32 `env:"DB_MIN_CONNS" envDefault:"0"`
	MaxConnIdleMinutes int   `env:"DB_MAX_CONN_IDLE_MINUTES" envDefault:"30"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	ExpireHours int    `env:"JWT_EXPIRE_HOURS" envDefault:"24"`
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID          string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey      string `env:"AWS_SECRET_ACCESS_KEY"`
	ReportsBucket        string `env:"AWS_S3_REPORTS_BUCKET" envDefault:"event-reports-bucket"`
	PicturesBucket       string `env:"AWS_S3_PICTURES_BUCKET" envDefault:"event-pictures-bucket"`
	PresignExpireMinutes int    `env:"AWS_PRESIGN_EXPIRE_MINUTES" envDefault:"15"`
}

// AnalyticsConfig points at the external analytics API used for log dumps.
type AnalyticsConfig struct {
	APIHost string `env:"ANALYTICS_API_HOST"`
}

// PlatformConfig holds defaults applied to new organizations.
type PlatformConfig struct {
	DefaultCommission          float64 `env:"DEFAULT_COMMISSION" envDefault:"0.95"`
	DefaultMaxEventLengthHours int     `env:"DEFAULT_MAX_EVENT_LENGTH_HOURS" envDefault:"72"`
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// ReadTimeoutDuration returns the read timeout as a duration.
func (c ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a duration.
func (c ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Platform.DefaultCommission < 0 || cfg.Platform.DefaultCommission > 1 {
		return nil, fmt.Errorf("DEFAULT_COMMISSION must be within [0, 1], got %v", cfg.Platform.DefaultCommission)
	}
	return &cfg, nil
}
