// Package config carries the miner's runtime configuration: defaults,
// an optional YAML overlay, and environment overrides using the names the
// contest harness sets (ADDRESS, PORT, SCHEMA, MAP_*).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Region struct {
	OffsetX int `yaml:"offset_x"`
	OffsetY int `yaml:"offset_y"`
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
}

// Cells is the number of grid coordinates in the region.
func (r Region) Cells() int { return r.Width * r.Height }

type Config struct {
	Schema string `yaml:"schema"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`

	Region  Region `yaml:"region"`
	Diggers int    `yaml:"diggers"`

	MaxDepth  int `yaml:"max_depth"`
	SellDepth int `yaml:"sell_depth"`

	MaxFreeLicenses int     `yaml:"max_free_licenses"`
	MaxPaidLicenses int     `yaml:"max_paid_licenses"`
	PaidLicenses    bool    `yaml:"paid_licenses"`
	SpendFraction   float64 `yaml:"spend_fraction"`

	RetryBudget  int `yaml:"retry_budget"`
	BackoffMs    int `yaml:"backoff_ms"`
	PollMs       int `yaml:"poll_ms"`
	HealthProbes int `yaml:"health_probes"`

	StatusAddr     string `yaml:"status_addr"`
	DataDir        string `yaml:"data_dir"`
	DisableDB      bool   `yaml:"disable_db"`
	DisableJournal bool   `yaml:"disable_journal"`
}

func Defaults() Config {
	diggers := runtime.NumCPU() - 1
	if diggers < 1 {
		diggers = 1
	}
	return Config{
		Schema: "http",
		Host:   "localhost",
		Port:   8000,

		Region:  Region{Width: 3500, Height: 3500},
		Diggers: diggers,

		MaxDepth:  10,
		SellDepth: 5,

		MaxFreeLicenses: 3,
		MaxPaidLicenses: 5,
		PaidLicenses:    false,
		SpendFraction:   0.1,

		RetryBudget:  1000,
		BackoffMs:    100,
		PollMs:       50,
		HealthProbes: 3,

		DataDir: "./data",
	}
}

// Load builds the effective config: defaults, then the YAML file at path
// (if non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("miner.yaml: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr("ADDRESS", &c.Host)
	envStr("SCHEMA", &c.Schema)
	envInt("PORT", &c.Port)
	if v, ok := lookupInt("MAP_SIZE"); ok {
		c.Region.Width, c.Region.Height = v, v
	}
	envInt("MAP_CELL_COUNT", &c.Region.Width)
	envInt("MAP_ROW_COUNT", &c.Region.Height)
	envInt("MAP_OFFSET_X", &c.Region.OffsetX)
	envInt("MAP_OFFSET_Y", &c.Region.OffsetY)
	envInt("CORE_COUNT", &c.Diggers)
	envInt("MAX_DEPTH", &c.MaxDepth)
	envInt("SELL_DEPTH", &c.SellDepth)
	envInt("MAX_LICENSES_FREE", &c.MaxFreeLicenses)
	envInt("MAX_LICENSES_PAID", &c.MaxPaidLicenses)
	envBool("PAID_LICENSES", &c.PaidLicenses)
	envFloat("SPEND_FRACTION", &c.SpendFraction)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Schema != "http" && c.Schema != "https" {
		return fmt.Errorf("schema must be http or https, got %q", c.Schema)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Region.Width <= 0 || c.Region.Height <= 0 {
		return fmt.Errorf("region must be non-empty: %dx%d", c.Region.Width, c.Region.Height)
	}
	if c.Region.OffsetX < 0 || c.Region.OffsetY < 0 {
		return fmt.Errorf("region offset must be >= 0")
	}
	if c.Diggers <= 0 {
		return fmt.Errorf("diggers must be > 0")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be > 0")
	}
	if c.SellDepth <= 0 || c.SellDepth > c.MaxDepth {
		return fmt.Errorf("sell_depth must be in [1, max_depth]")
	}
	if c.MaxFreeLicenses <= 0 {
		return fmt.Errorf("max_free_licenses must be > 0")
	}
	if c.MaxPaidLicenses < 0 {
		return fmt.Errorf("max_paid_licenses must be >= 0")
	}
	if c.SpendFraction <= 0 || c.SpendFraction > 1 {
		return fmt.Errorf("spend_fraction must be in (0, 1]")
	}
	if c.RetryBudget <= 0 {
		return fmt.Errorf("retry_budget must be > 0")
	}
	if c.BackoffMs <= 0 || c.PollMs <= 0 {
		return fmt.Errorf("backoff_ms and poll_ms must be > 0")
	}
	if c.HealthProbes <= 0 {
		return fmt.Errorf("health_probes must be > 0")
	}
	return nil
}

// BaseURL composes the service root, eliding the port for 80 and 443 the
// way the contest harness expects.
func (c Config) BaseURL() string {
	if c.Port == 80 || c.Port == 443 {
		return fmt.Sprintf("%s://%s", c.Schema, c.Host)
	}
	return fmt.Sprintf("%s://%s:%d", c.Schema, c.Host, c.Port)
}

func envStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt(key string, dst *int) {
	if n, ok := lookupInt(key); ok {
		*dst = n
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			*dst = b
		}
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			*dst = f
		}
	}
}
