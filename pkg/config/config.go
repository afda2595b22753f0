package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Records    RecordsConfig
	Automation AutomationConfig
	Mail       MailConfig
	Archive    ArchiveConfig
	NATS       NATSConfig
	Redis      RedisConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RecordsConfig selects the attempt-record store backend.
type RecordsConfig struct {
	Backend        string // "postgres" or "dynamodb"
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
	AccessKeyID    string
	SecretKey      string
}

type AutomationConfig struct {
	ScreenshotDir          string
	Headless               bool
	BaseURL                string
	LoginEmail             string
	LoginPassword          string
	LoginTimeout           time.Duration
	ApprovalTimeoutSeconds int
	PollIntervalSeconds    int
	WindowWidth            int
	WindowHeight           int
	UserAgent              string
	ChromeBin              string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type SecurityConfig struct {
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

func Load() (*Config, error) {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	approvalTimeout, err := strconv.Atoi(getEnv("APPROVAL_TIMEOUT_SECONDS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPROVAL_TIMEOUT_SECONDS: %w", err)
	}

	pollInterval, err := strconv.Atoi(getEnv("APPROVAL_POLL_INTERVAL_SECONDS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPROVAL_POLL_INTERVAL_SECONDS: %w", err)
	}

	loginTimeout, err := time.ParseDuration(getEnv("LOGIN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_TIMEOUT: %w", err)
	}

	mailPort, err := strconv.Atoi(getEnv("MAIL_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := time.ParseDuration(getEnv("REDIS_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %w", err)
	}

	rateBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Minute, // capture + device approval can run for minutes
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "screenshot_mailer"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Records: RecordsConfig{
			Backend:        getEnv("RECORDS_BACKEND", "postgres"),
			DynamoTable:    getEnv("DYNAMODB_TABLE", "screenshot_attempts"),
			DynamoRegion:   getEnv("DYNAMODB_REGION", "us-east-1"),
			DynamoEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:    getEnv("DYNAMODB_ACCESS_KEY_ID", ""),
			SecretKey:      getEnv("DYNAMODB_SECRET_ACCESS_KEY", ""),
		},
		Automation: AutomationConfig{
			ScreenshotDir:          getEnv("SCREENSHOT_DIR", "./screenshots"),
			Headless:               getEnvBool("AUTOMATION_HEADLESS", true),
			BaseURL:                getEnv("TARGET_BASE_URL", "https://github.com"),
			LoginEmail:             getEnv("LOGIN_EMAIL", ""),
			LoginPassword:          getEnv("LOGIN_PASSWORD", ""),
			LoginTimeout:           loginTimeout,
			ApprovalTimeoutSeconds: approvalTimeout,
			PollIntervalSeconds:    pollInterval,
			WindowWidth:            1366,
			WindowHeight:           768,
			UserAgent:              getEnv("AUTOMATION_USER_AGENT", defaultUserAgent),
			ChromeBin:              getEnv("CHROME_BIN", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", "localhost"),
			Port:     mailPort,
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "screenshot-mailer@localhost"),
		},
		Archive: ArchiveConfig{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "screenshots"),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		Security: SecurityConfig{
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerSecond: rateLimit,
			RateLimitBurst:     rateBurst,
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if cfg.Records.Backend != "postgres" && cfg.Records.Backend != "dynamodb" {
		return nil, fmt.Errorf("unsupported RECORDS_BACKEND: %s", cfg.Records.Backend)
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
