package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Dispatch DispatchConfig
	Email    EmailConfig
	AWS      AWSConfig
	Storage  StorageConfig
	NATS     NATSConfig
	Redis    RedisConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application settings
type AppConfig struct {
	Environment string
	// BaseURL is used to build action URLs in notifications
	BaseURL string
}

// AuthConfig holds JWT validation settings
type AuthConfig struct {
	JWTSecret string
}

// DispatchConfig holds reminder dispatch settings
type DispatchConfig struct {
	// SweepSchedule is a cron expression; empty disables the built-in
	// trigger so an external scheduler can drive POST /dispatch/run.
	SweepSchedule     string
	WorkerConcurrency int
	BatchLimit        int
	MaxAttempts       int
	RetryBackoff      []time.Duration
	DeliveryTimeout   time.Duration
}

// EmailConfig holds email provider settings
type EmailConfig struct {
	// AWS SES (primary)
	SESFrom     string
	SESFromName string

	// SendGrid (fallback)
	SendGridAPIKey string
	SendGridFrom   string

	// Generic SMTP (final fallback)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	EnableFailover bool
}

// AWSConfig holds AWS credentials shared by SES and S3
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// StorageConfig holds contract document blob store settings
type StorageConfig struct {
	Bucket         string
	Endpoint       string
	ForcePathStyle bool
	URLExpiry      time.Duration
}

// NATSConfig holds NATS settings
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// RedisConfig holds redis cache settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Load loads configuration from environment
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "contracts"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Environment: getEnv("ENVIRONMENT", "development"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Dispatch: DispatchConfig{
			SweepSchedule:     getEnv("DISPATCH_SWEEP_SCHEDULE", "0 */5 * * * *"),
			WorkerConcurrency: getEnvInt("DISPATCH_WORKER_CONCURRENCY", 10),
			BatchLimit:        getEnvInt("DISPATCH_BATCH_LIMIT", 500),
			MaxAttempts:       getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			RetryBackoff:      getEnvDurations("DISPATCH_RETRY_BACKOFF", []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second}),
			DeliveryTimeout:   time.Duration(getEnvInt("DISPATCH_DELIVERY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Email: EmailConfig{
			SESFrom:        getEnv("AWS_SES_FROM", ""),
			SESFromName:    getEnv("AWS_SES_FROM_NAME", "Contract Service"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SendGridFrom:   getEnv("SENDGRID_FROM", ""),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       getEnvInt("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:       getEnv("SMTP_FROM", ""),
			EnableFailover: getEnvBool("EMAIL_FAILOVER_ENABLED", true),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Storage: StorageConfig{
			Bucket:         getEnv("STORAGE_BUCKET", ""),
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			ForcePathStyle: getEnvBool("STORAGE_FORCE_PATH_STYLE", false),
			URLExpiry:      time.Duration(getEnvInt("STORAGE_URL_EXPIRY_MINUTES", 15)) * time.Minute,
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			MaxReconnects: getEnvInt("NATS_MAX_RECONNECTS", -1),
			ReconnectWait: time.Duration(getEnvInt("NATS_RECONNECT_WAIT_SECONDS", 2)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}

	if cfg.Dispatch.MaxAttempts < 1 {
		return nil, fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDurations parses a comma-separated list of durations, e.g. "60s,5m,10m".
func getEnvDurations(key string, defaultValue []time.Duration) []time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, d)
	}
	return out
}
