package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names recognised in APP_ENV.
const (
	EnvProduction = "production"
	EnvTest       = "test"
	EnvEmulator   = "emulator"
)

// Base collection names. Use Config.CollectionName to get the environment-prefixed name.
const (
	WiresCollection     = "userRequests"
	SentMailsCollection = "sentMails"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env
	Env     string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string

	// Server
	ApiPort           string
	ServiceApiPort    string
	CorsAllowedOrigin string
	TokenTTL          time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MailCopyAddress string
	MailLogFile     string
	MockServices    bool

	// Submission
	PaymentLinkURL string
	ListingFee     int64

	// App Defaults
	AppName                 string
	GetCacheTTL             time.Duration
	SubscriptionRetryDelay  time.Duration
	RequestIDMaxRetries     int
	MaxPageSize             int
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// CollectionName returns the collection name for the configured environment.
// Emulator and test data live side by side with production data under a prefix.
func (c *Config) CollectionName(base string) string {
	switch c.Env {
	case EnvEmulator:
		return "emulator_" + base
	case EnvTest:
		return "test_" + base
	default:
		return base
	}
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		secs, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(secs) * time.Second, nil
	}

	cfg.Env = strings.ToLower(getEnv("APP_ENV", EnvProduction))
	switch cfg.Env {
	case EnvProduction, EnvTest, EnvEmulator:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q: expected %s, %s or %s", cfg.Env, EnvProduction, EnvTest, EnvEmulator)
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "wireboard")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CorsAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@wireboard.example.com")
	cfg.MailCopyAddress = getEnv("MAIL_COPY_ADDRESS", "")
	cfg.MailLogFile = getEnv("MAIL_LOG_FILE", "")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.PaymentLinkURL = getEnv("PAYMENT_LINK_URL", "https://paystack.shop/pay/corplandrequest")
	cfg.AppName = getEnv("APP_NAME", "Wireboard")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.ListingFee, err = strconv.ParseInt(getEnv("LISTING_FEE", "3100"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LISTING_FEE: %w", err)
	}

	if cfg.GetCacheTTL, err = getSeconds("GET_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getSeconds("TOKEN_TTL_SECONDS", "86400"); err != nil {
		return nil, err
	}
	if cfg.SubscriptionRetryDelay, err = getSeconds("SUBSCRIPTION_RETRY_SECONDS", "2"); err != nil {
		return nil, err
	}

	cfg.RequestIDMaxRetries, err = strconv.Atoi(getEnv("REQUEST_ID_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_ID_MAX_RETRIES: %w", err)
	}

	cfg.MaxPageSize, err = strconv.Atoi(getEnv("MAX_PAGE_SIZE", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PAGE_SIZE: %w", err)
	}

	// Rate Limiting
	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
