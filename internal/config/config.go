package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// AppConfig holds all runtime settings, loaded from the environment.
type AppConfig struct {
	// Core
	DatabaseURL    string
	Port           string
	LogLevel       string
	AllowedOrigins string
	JWTSecret      string

	// Currency
	LocalCurrency  string
	FXRateURL      string
	FXRateField    string
	FXFallbackRate decimal.Decimal
	FXCacheTTL     time.Duration
	FXTimeout      time.Duration
	FXRetryBackoff time.Duration

	// Sessions and caching
	DraftTTL          time.Duration
	DashboardCacheTTL time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultFXRateURL is the rate source used when FX_RATE_URL is unset.
const DefaultFXRateURL = "https://dolarapi.com/v1/dolares/blue"

// Load reads .env (current directory, then parent) and builds an AppConfig
// from the environment. Missing .env files are not an error.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("../.env"); err2 != nil && !errors.Is(err2, fs.ErrNotExist) {
			log.Printf("Warning: error loading .env file: %v", err2)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds an AppConfig from a lookup function. Invalid numeric or
// duration values are reported as errors rather than silently defaulted.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	c := &AppConfig{
		DatabaseURL:    getenv("DATABASE_URL"),
		Port:           withDefault(getenv("SERVER_PORT"), "8080"),
		LogLevel:       withDefault(getenv("LOG_LEVEL"), "info"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		JWTSecret:      getenv("JWT_SECRET"),
		LocalCurrency:  strings.ToUpper(withDefault(getenv("LOCAL_CURRENCY"), "ARS")),
		FXRateURL:      withDefault(getenv("FX_RATE_URL"), DefaultFXRateURL),
		FXRateField:    withDefault(getenv("FX_RATE_FIELD"), "venta"),
	}

	var err error
	if c.FXFallbackRate, err = parseDecimal(getenv, "FX_FALLBACK_RATE", decimal.NewFromInt(1)); err != nil {
		return nil, err
	}
	if !c.FXFallbackRate.IsPositive() {
		return nil, fmt.Errorf("FX_FALLBACK_RATE must be > 0, got %s", c.FXFallbackRate)
	}
	if c.FXCacheTTL, err = parseDuration(getenv, "FX_CACHE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if c.FXTimeout, err = parseDuration(getenv, "FX_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if c.FXRetryBackoff, err = parseDuration(getenv, "FX_RETRY_BACKOFF", 30*time.Second); err != nil {
		return nil, err
	}
	if c.DraftTTL, err = parseDuration(getenv, "DRAFT_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if c.DashboardCacheTTL, err = parseDuration(getenv, "DASHBOARD_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if c.RateLimitRPS, err = parseFloat(getenv, "RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}
	if c.RateLimitBurst, err = parseInt(getenv, "RATE_LIMIT_BURST", 30); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *AppConfig) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be set and at least 32 characters")
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDecimal(getenv func(string) string, key string, def decimal.Decimal) (decimal.Decimal, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func parseFloat(getenv func(string) string, key string, def float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
