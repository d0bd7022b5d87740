package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Provider struct {
		Name      string            `yaml:"name"` // "yahoo" or "mock"
		BasePrice float64           `yaml:"base_price"`
		SymbolMap map[string]string `yaml:"symbol_map"`
	} `yaml:"provider"`
	Fetch struct {
		MaxRequestsPerMinute int     `yaml:"max_requests_per_minute"`
		MaxRetries           int     `yaml:"max_retries"`
		BaseDelay            string  `yaml:"base_delay"`
		FailureThreshold     int     `yaml:"failure_threshold"`
		CoolDown             string  `yaml:"cool_down"`
		Period               string  `yaml:"period"`
		PricePrecision       int     `yaml:"price_precision"`
		FuzzyTolerancePct    float64 `yaml:"fuzzy_tolerance_percent"`
	} `yaml:"fetch"`
	Cache struct {
		Enabled            bool `yaml:"enabled"`
		MaxPointsPerSymbol int  `yaml:"max_points_per_symbol"`
		BulkConcurrency    int  `yaml:"bulk_concurrency"`
		TTL                struct {
			UltraHigh string `yaml:"ultra_high"`
			High      string `yaml:"high"`
			Medium    string `yaml:"medium"`
			Low       string `yaml:"low"`
			VeryLow   string `yaml:"very_low"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RefreshCron   string   `yaml:"refresh_cron"`
		CleanupCron   string   `yaml:"cleanup_cron"`
		Symbols       []string `yaml:"symbols"`
		RetentionDays int      `yaml:"retention_days"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Cache.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PROVIDER_NAME"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("MAX_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fetch.MaxRequestsPerMinute = n
		}
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = v != "false" && v != "0"
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}

	// Defaults
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "yahoo"
	}
	if cfg.Provider.BasePrice == 0 {
		cfg.Provider.BasePrice = 100
	}
	if cfg.Fetch.MaxRequestsPerMinute == 0 {
		cfg.Fetch.MaxRequestsPerMinute = 30
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = 3
	}
	if cfg.Fetch.BaseDelay == "" {
		cfg.Fetch.BaseDelay = "1s"
	}
	if cfg.Fetch.FailureThreshold == 0 {
		cfg.Fetch.FailureThreshold = 5
	}
	if cfg.Fetch.CoolDown == "" {
		cfg.Fetch.CoolDown = "60s"
	}
	if cfg.Fetch.Period == "" {
		cfg.Fetch.Period = "1y"
	}
	if cfg.Fetch.PricePrecision == 0 {
		cfg.Fetch.PricePrecision = 8
	}
	if cfg.Fetch.FuzzyTolerancePct == 0 {
		cfg.Fetch.FuzzyTolerancePct = 0.1
	}
	if cfg.Cache.MaxPointsPerSymbol == 0 {
		cfg.Cache.MaxPointsPerSymbol = 5000
	}
	if cfg.Cache.BulkConcurrency == 0 {
		cfg.Cache.BulkConcurrency = 5
	}
	if cfg.Cache.TTL.UltraHigh == "" {
		cfg.Cache.TTL.UltraHigh = "15m"
	}
	if cfg.Cache.TTL.High == "" {
		cfg.Cache.TTL.High = "1h"
	}
	if cfg.Cache.TTL.Medium == "" {
		cfg.Cache.TTL.Medium = "6h"
	}
	if cfg.Cache.TTL.Low == "" {
		cfg.Cache.TTL.Low = "24h"
	}
	if cfg.Cache.TTL.VeryLow == "" {
		cfg.Cache.TTL.VeryLow = "168h"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */30 * * * *"
	}
	if cfg.Schedule.CleanupCron == "" {
		cfg.Schedule.CleanupCron = "0 0 3 * * *"
	}
	if cfg.Schedule.RetentionDays == 0 {
		cfg.Schedule.RetentionDays = 730
	}

	return cfg, nil
}

// Validate checks that all required fields are consistent.
func (c *Config) Validate() error {
	if c.Provider.Name != "yahoo" && c.Provider.Name != "mock" {
		return fmt.Errorf("provider.name must be yahoo or mock, got %q", c.Provider.Name)
	}
	if c.Fetch.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("fetch.max_requests_per_minute must be positive")
	}
	if c.Fetch.FuzzyTolerancePct < 0 || c.Fetch.FuzzyTolerancePct > 100 {
		return fmt.Errorf("fetch.fuzzy_tolerance_percent must be in [0,100]")
	}
	for name, v := range map[string]string{
		"fetch.base_delay":     c.Fetch.BaseDelay,
		"fetch.cool_down":      c.Fetch.CoolDown,
		"cache.ttl.ultra_high": c.Cache.TTL.UltraHigh,
		"cache.ttl.high":       c.Cache.TTL.High,
		"cache.ttl.medium":     c.Cache.TTL.Medium,
		"cache.ttl.low":        c.Cache.TTL.Low,
		"cache.ttl.very_low":   c.Cache.TTL.VeryLow,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration field that Validate has already checked.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
