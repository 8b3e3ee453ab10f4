// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat        string `envconfig:"LOG_FORMAT" default:"console"`

	AdminUserIDs   []int64  `ignored:"true"`
	AdminUsernames []string `ignored:"true"`
	AdminChannelID int64    `envconfig:"ADMIN_CHANNEL_ID"`

	ReferralBonus     decimal.Decimal `envconfig:"REFERRAL_BONUS" default:"5000"`
	VoteBonus         decimal.Decimal `envconfig:"VOTE_BONUS" default:"10000"`
	MinWithdrawal     decimal.Decimal `envconfig:"MIN_WITHDRAWAL" default:"20000"`
	CommissionRate    decimal.Decimal `envconfig:"COMMISSION_RATE" default:"0.02"`
	MaxVotesPerSeason int             `envconfig:"MAX_VOTES_PER_SEASON" default:"3"`

	SupportedLanguages []string      `envconfig:"SUPPORTED_LANGUAGES" default:"uz,ru,en"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	BroadcastDelay     time.Duration `envconfig:"BROADCAST_DELAY" default:"50ms"`

	OTelExporter string `envconfig:"OTEL_EXPORTER" default:"none"`
	OTelProtocol string `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"http/protobuf"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.AdminUserIDs = parseIDList(os.Getenv("ADMIN_USER_IDS"))
	cfg.AdminUsernames = parseUsernameList(os.Getenv("ADMIN_USERNAMES"))

	for i, lang := range cfg.SupportedLanguages {
		cfg.SupportedLanguages[i] = strings.ToLower(strings.TrimSpace(lang))
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for idStr := range strings.SplitSeq(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseUsernameList(raw string) []string {
	var names []string
	for username := range strings.SplitSeq(raw, ",") {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}
		// Remove @ prefix if present
		names = append(names, strings.TrimPrefix(username, "@"))
	}
	return names
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.AdminUserIDs) == 0 && len(c.AdminUsernames) == 0 {
		errs = append(errs, "at least one admin (ADMIN_USER_IDS or ADMIN_USERNAMES) is required")
	}

	if c.AdminChannelID == 0 {
		errs = append(errs, "ADMIN_CHANNEL_ID is required")
	}

	if c.CommissionRate.IsNegative() || c.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "COMMISSION_RATE must be in [0, 1)")
	}

	if !c.ReferralBonus.IsPositive() || !c.VoteBonus.IsPositive() {
		errs = append(errs, "REFERRAL_BONUS and VOTE_BONUS must be positive")
	}

	if c.MinWithdrawal.IsNegative() {
		errs = append(errs, "MIN_WITHDRAWAL must not be negative")
	}

	if c.MaxVotesPerSeason <= 0 {
		errs = append(errs, "MAX_VOTES_PER_SEASON must be positive")
	}

	if len(c.SupportedLanguages) == 0 {
		errs = append(errs, "SUPPORTED_LANGUAGES must list at least one language")
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, "OTEL_EXPORTER must be one of none, stdout, otlp")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsAdmin checks if a Telegram user ID or username is in the admin allow-list.
func (c *Config) IsAdmin(userID int64, username string) bool {
	if slices.Contains(c.AdminUserIDs, userID) {
		return true
	}

	// Check username allow-list (case-insensitive)
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, admin := range c.AdminUsernames {
			if strings.EqualFold(admin, username) {
				return true
			}
		}
	}

	return false
}

// IsSupportedLanguage reports whether lang is offered at registration.
func (c *Config) IsSupportedLanguage(lang string) bool {
	return slices.Contains(c.SupportedLanguages, lang)
}
