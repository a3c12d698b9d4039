package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int     `yaml:"port"`
		APIKey          string  `yaml:"api_key"`
		RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Facility struct {
		Timezone                string `yaml:"timezone"`
		DefaultReductionPercent int    `yaml:"default_reduction_percent"`
	} `yaml:"facility"`

	Preview struct {
		MaxDays         int `yaml:"max_days"`
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"preview"`

	Database struct {
		Path   string `yaml:"path"`
		Backup struct {
			Enabled       bool   `yaml:"enabled"`
			IntervalHours int    `yaml:"interval_hours"`
			Path          string `yaml:"path"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"backup"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
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
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/closures.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves the facility timezone, defaulting to Europe/Rome.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Facility.Timezone
	if tz == "" {
		tz = "Europe/Rome"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("facility.timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (c *Config) ReductionPercent() int {
	if c.Facility.DefaultReductionPercent <= 0 {
		return 100
	}
	return c.Facility.DefaultReductionPercent
}

func (c *Config) PreviewMaxDays() int {
	if c.Preview.MaxDays <= 0 {
		return 120
	}
	return c.Preview.MaxDays
}

func (c *Config) PreviewCacheTTL() time.Duration {
	if c.Preview.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Preview.CacheTTLSeconds) * time.Second
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}

func (c *Config) RateLimit() (float64, int) {
	rps := c.Server.RateLimitPerSec
	if rps <= 0 {
		rps = 20
	}
	burst := c.Server.RateLimitBurst
	if burst <= 0 {
		burst = 40
	}
	return rps, burst
}

func (c *Config) BackupInterval() time.Duration {
	if c.Database.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Database.Backup.IntervalHours) * time.Hour
}
