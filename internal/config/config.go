// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the apply service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Job-search providers
	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // e.g. "fr", "gb", "us"

	// Pipeline cadence
	ApplyIntervalMinutes int // how often the cron job fires
	UserDelaySeconds     int // pause between users within a tick
	FeedMaxAgeHours      int // freshness window before re-querying providers

	// Email transport (required — the worker is useless without confirmations)
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// SMS transport (optional — SMS is disabled when SID is empty)
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// SMSEnabled reports whether Twilio credentials are configured.
func (c *Config) SMSEnabled() bool { return c.TwilioSID != "" && c.TwilioToken != "" }

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}

	smtpFrom := os.Getenv("SMTP_FROM")
	if smtpFrom == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}

	smtpPort, err := positiveInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	interval, err := positiveInt("APPLY_INTERVAL_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	userDelay, err := positiveInt("USER_DELAY_SECONDS", 20)
	if err != nil {
		return nil, err
	}

	feedMaxAge, err := positiveInt("FEED_MAX_AGE_HOURS", 6)
	if err != nil {
		return nil, err
	}

	country := os.Getenv("ADZUNA_COUNTRY")
	if country == "" {
		country = "us"
	}

	port := os.Getenv("APPLY_PORT")
	if port == "" {
		port = "8084"
	}

	return &Config{
		Port:                 port,
		DatabaseURL:          dbURL,
		RedisURL:             redisURL,
		AdzunaAppID:          os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:         os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:        country,
		ApplyIntervalMinutes: interval,
		UserDelaySeconds:     userDelay,
		FeedMaxAgeHours:      feedMaxAge,
		SMTPHost:             smtpHost,
		SMTPPort:             smtpPort,
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		SMTPFrom:             smtpFrom,
		TwilioSID:            os.Getenv("TWILIO_SID"),
		TwilioToken:          os.Getenv("TWILIO_TOKEN"),
		TwilioFrom:           os.Getenv("TWILIO_FROM"),
	}, nil
}

// positiveInt reads an env var as a positive integer, falling back to def
// when unset.
func positiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
