// Package config loads server settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image store modes.
const (
	ImageStoreInline   = "inline"
	ImageStoreDatabase = "database"
	ImageStoreS3       = "s3"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port string

	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
	BcryptCost   int

	ProviderAPIKey  string
	ProviderURL     string
	ProviderTimeout time.Duration

	ImageStore  string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// AllowedOrigins lists origins permitted for cross-origin requests.
	// "*" allows any origin without credentials.
	AllowedOrigins []string

	// GenerateRate is the sustained generate requests per minute per account.
	GenerateRate  float64
	GenerateBurst int

	LogLevel slog.Level
}

// Load reads .env files (when present) and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		slog.Debug("loaded env file", "file", file)
	}

	var errs []error
	cfg := &Config{
		Port:           envOrDefault("PORT", "4000"),
		DatabaseDriver: strings.ToLower(envOrDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:   envOrDefault("DATABASE_PATH", "picprompt.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		// Default to secure cookies; disable only for local development.
		CookieSecure:   os.Getenv("COOKIE_SECURE") != "false",
		ProviderAPIKey: os.Getenv("CLIPDROP_API"),
		ProviderURL:    os.Getenv("PROVIDER_URL"),
		ImageStore:     strings.ToLower(envOrDefault("IMAGE_STORE", ImageStoreInline)),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       envOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
	}

	cfg.AllowedOrigins = listEnv("ALLOWED_ORIGINS", []string{"*"})
	cfg.TokenTTL = durationEnv("TOKEN_TTL", 24*time.Hour, &errs)
	cfg.ProviderTimeout = durationEnv("PROVIDER_TIMEOUT", 30*time.Second, &errs)
	cfg.BcryptCost = intEnv("BCRYPT_COST", 12, &errs)
	cfg.GenerateRate = floatEnv("GENERATE_RATE", 10, &errs)
	cfg.GenerateBurst = intEnv("GENERATE_BURST", 3, &errs)

	if err := cfg.LogLevel.UnmarshalText([]byte(envOrDefault("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}

	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.ImageStore {
	case ImageStoreInline, ImageStoreDatabase:
	case ImageStoreS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when IMAGE_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore))
	}

	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("ALLOWED_ORIGINS must name at least one origin"))
	}

	if c.GenerateRate <= 0 {
		errs = append(errs, errors.New("GENERATE_RATE must be positive"))
	}
	if c.GenerateBurst < 1 {
		errs = append(errs, errors.New("GENERATE_BURST must be at least 1"))
	}

	return errors.Join(errs...)
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// listEnv splits a comma-separated variable, dropping blank entries.
func listEnv(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(key string, defaultVal int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return parsed
}

func floatEnv(key string, defaultVal float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return parsed
}

func durationEnv(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return parsed
}
