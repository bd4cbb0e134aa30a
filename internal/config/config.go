package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionLimits configures one session kind: how many relayed messages are
// allowed and how long the window stays open.
type SessionLimits struct {
	MaxUses    int `yaml:"max_uses"`
	TTLMinutes int `yaml:"ttl_minutes"`
}

func (s SessionLimits) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// SeedResource describes one resource created on first start.
type SeedResource struct {
	Name      string `yaml:"name"`
	Capacity  int    `yaml:"capacity"`
	OpenTime  string `yaml:"open_time"`
	CloseTime string `yaml:"close_time"`
}

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Timezone is the single process-wide display timezone. Timestamps are
	// stored in UTC; only formatting uses this.
	Timezone string `yaml:"timezone"`

	Booking struct {
		HoldMinutes int `yaml:"hold_minutes"`
		HorizonDays int `yaml:"horizon_days"`
	} `yaml:"booking"`

	Sessions struct {
		AdminReply SessionLimits `yaml:"admin_reply"`
		GroupReply SessionLimits `yaml:"group_reply"`
		Rating     SessionLimits `yaml:"rating"`
	} `yaml:"sessions"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Notify struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
		QueueSize     int     `yaml:"queue_size"`
	} `yaml:"notify"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Seed struct {
		ServiceName     string         `yaml:"service_name"`
		DurationMinutes int            `yaml:"duration_minutes"`
		Price           int64          `yaml:"price"`
		StepMinutes     int            `yaml:"step_minutes"`
		Resources       []SeedResource `yaml:"resources"`
	} `yaml:"seed"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/booking.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Dhaka"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// HoldDuration is how long a pending booking reserves capacity before the
// hold lapses.
func (c *Config) HoldDuration() time.Duration {
	if c.Booking.HoldMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Booking.HoldMinutes) * time.Minute
}

// BookingHorizon is how far ahead users may book.
func (c *Config) BookingHorizon() time.Duration {
	if c.Booking.HorizonDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Booking.HorizonDays) * 24 * time.Hour
}

// Location resolves the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
