// Package config holds the file-backed configuration for the induction
// planner: scheduling knobs, solver budget, and the database, cache and
// server sections used by the service binary.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree loaded from config/inductor.yaml.
type Config struct {
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Solver     SolverConfig     `yaml:"solver"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
}

// SchedulingConfig carries the roster-shape knobs.
type SchedulingConfig struct {
	RosterSize       int `yaml:"roster_size"`        // trainsets per nightly roster
	DepotBalanceLo   int `yaml:"depot_balance_lo"`   // per-depot lower bound
	DepotBalanceHi   int `yaml:"depot_balance_hi"`   // per-depot upper bound
	AgeNewYearsMax   int `yaml:"age_new_years_max"`  // "new" means commissioned within this many years
	AgeDiversityMin  int `yaml:"age_diversity_min"`  // minimum new trainsets when the pool allows
	VendorMin        int `yaml:"vendor_min"`         // per-vendor minimum when the pool allows
	CriticalBrandMin int `yaml:"critical_brand_min"` // critical-campaign minimum when the pool allows
	MileageBandLowKM int `yaml:"mileage_band_low_km"`
	MileageBandHiKM  int `yaml:"mileage_band_high_km"`
	HomeBayMin       int `yaml:"home_bay_min"` // home-bay preference minimum when the pool allows
}

// SolverConfig carries solver behaviour knobs.
type SolverConfig struct {
	BudgetSeconds    int  `yaml:"budget_seconds"`
	EnableRelaxation bool `yaml:"enable_relaxation"`
}

// DatabaseConfig carries the postgres connection settings.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string.
func (dc DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		dc.Host, dc.Port, dc.Name, dc.User, dc.Password, dc.SSLMode)
}

// CacheConfig carries the redis settings for roster caching.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db"`
	TTL     time.Duration `yaml:"ttl"`
}

// ServerConfig carries the HTTP service settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Scheduling: SchedulingConfig{
			RosterSize:       24,
			DepotBalanceLo:   9,
			DepotBalanceHi:   15,
			AgeNewYearsMax:   5,
			AgeDiversityMin:  8,
			VendorMin:        4,
			CriticalBrandMin: 6,
			MileageBandLowKM: 50000,
			MileageBandHiKM:  150000,
			HomeBayMin:       18,
		},
		Solver: SolverConfig{
			BudgetSeconds:    10,
			EnableRelaxation: true,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "inductor",
			User:            "inductor",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     6 * time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.applyEnv()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %s", path, errs[0])
	}
	return cfg, nil
}

// applyEnv overlays connection settings that should not live in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("INDUCTOR_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("INDUCTOR_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("INDUCTOR_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("INDUCTOR_REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
}

// Validate checks the loaded tree for internally inconsistent values and
// returns every problem found.
func (c *Config) Validate() []string {
	var errs []string
	s := c.Scheduling
	if s.RosterSize <= 0 {
		errs = append(errs, fmt.Sprintf("roster_size %d must be positive", s.RosterSize))
	}
	if s.DepotBalanceLo < 0 || s.DepotBalanceHi < s.DepotBalanceLo {
		errs = append(errs, fmt.Sprintf("depot balance band [%d, %d] is inverted", s.DepotBalanceLo, s.DepotBalanceHi))
	}
	if 2*s.DepotBalanceLo > s.RosterSize {
		errs = append(errs, fmt.Sprintf("depot_balance_lo %d infeasible for roster_size %d", s.DepotBalanceLo, s.RosterSize))
	}
	if s.MileageBandHiKM <= s.MileageBandLowKM {
		errs = append(errs, fmt.Sprintf("mileage band [%d, %d] km is inverted", s.MileageBandLowKM, s.MileageBandHiKM))
	}
	if c.Solver.BudgetSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("solver budget_seconds %d must be positive", c.Solver.BudgetSeconds))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, "cache ttl must be positive when cache is enabled")
	}
	return errs
}

// DefaultPath returns the conventional location of the config file.
func DefaultPath() string {
	return filepath.Join("config", "inductor.yaml")
}
