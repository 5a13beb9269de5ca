// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // merchant session tokens
	// RateLimit caps mutating requests per client per minute; 0 disables.
	RateLimit int `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AnalyticsConfig struct {
	// MinDate clamps every requested dateFrom to the platform's operational
	// start; earlier data predates launch and would skew cohorts.
	MinDate string `yaml:"min_date"` // YYYY-MM-DD
}

type PayoutConfig struct {
	Interval  time.Duration `yaml:"interval"`   // payout runner tick
	MinAmount string        `yaml:"min_amount"` // skip merchants below this pending total
	StripeKey string        `yaml:"stripe_key"`
	Currency  string        `yaml:"currency"`
}

type VoucherConfig struct {
	ExpiryDays     int           `yaml:"expiry_days"` // issued vouchers expire after this many days
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Payout    PayoutConfig    `yaml:"payout"`
	Voucher   VoucherConfig   `yaml:"voucher"`
	MQ        MQConfig        `yaml:"mq"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Payout.Interval <= 0 {
		cfg.Payout.Interval = time.Hour
	}
	if cfg.Payout.Currency == "" {
		cfg.Payout.Currency = "eur"
	}
	if cfg.Voucher.ExpiryDays <= 0 {
		cfg.Voucher.ExpiryDays = 365
	}
	if cfg.Voucher.ExpiryInterval <= 0 {
		cfg.Voucher.ExpiryInterval = time.Hour
	}
	if cfg.MQ.Exchange == "" {
		cfg.MQ.Exchange = "brontie.events"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Analytics.MinDate != "" {
		if _, err := time.Parse("2006-01-02", cfg.Analytics.MinDate); err != nil {
			return nil, fmt.Errorf("analytics.min_date: %w", err)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// MinAnalyticsDate returns the configured clamp date, zero when unset.
func (c *Config) MinAnalyticsDate() time.Time {
	if c.Analytics.MinDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", c.Analytics.MinDate)
	return t
}
