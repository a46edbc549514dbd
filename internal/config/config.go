// Package config loads and validates the driftcast run configuration from
// YAML, applying defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the file is parsed. Secrets stay out of
// the YAML.
const (
	EnvPostgresDSN = "DRIFTCAST_PG_DSN"
	EnvRedisAddr   = "DRIFTCAST_REDIS_ADDR"
)

// Config is the full run configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Eval     EvalConfig     `yaml:"eval"`
	Data     DataConfig     `yaml:"data"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Output   OutputConfig   `yaml:"output"`
}

// EngineConfig bounds the walk-forward loop.
type EngineConfig struct {
	WindowSize int `yaml:"window_size"`
	MaxP       int `yaml:"max_p"`
	MaxQ       int `yaml:"max_q"`
	Workers    int `yaml:"workers"` // 0 = NumCPU
}

// EvalConfig sets the performance-evaluation parameters.
type EvalConfig struct {
	RiskFreeAnnual float64 `yaml:"risk_free_annual"`
	PeriodsPerYear int     `yaml:"periods_per_year"`
	Start          string  `yaml:"start"` // YYYY-MM-DD, empty = curve start
	End            string  `yaml:"end"`   // YYYY-MM-DD, empty = curve end
}

// DataConfig selects the price source: a local CSV file or a stooq symbol.
// Exactly one must be set.
type DataConfig struct {
	CSVPath     string `yaml:"csv_path"`
	StooqSymbol string `yaml:"stooq_symbol"`
	From        string `yaml:"from"` // YYYY-MM-DD, stooq only
	To          string `yaml:"to"`   // YYYY-MM-DD, stooq only
}

// CacheConfig enables the Redis price-series cache when Addr is set.
type CacheConfig struct {
	Addr    string `yaml:"addr"`
	TTLSecs int    `yaml:"ttl_secs"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSecs) * time.Second }

// PostgresConfig enables run persistence when DSN is set.
type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the per-statement timeout as a duration.
func (c PostgresConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// MonitorConfig binds the read-only HTTP monitor.
type MonitorConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// OutputConfig places run artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the documented defaults: 500-day windows, order
// bounds (4,4), 2% annual risk-free rate over 252 periods.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			WindowSize: 500,
			MaxP:       4,
			MaxQ:       4,
			Workers:    0,
		},
		Eval: EvalConfig{
			RiskFreeAnnual: 0.02,
			PeriodsPerYear: 252,
		},
		Cache: CacheConfig{
			TTLSecs: 86400,
		},
		Postgres: PostgresConfig{
			TimeoutSecs: 10,
		},
		Monitor: MonitorConfig{
			Host: "127.0.0.1",
			Port: 8087,
		},
		Output: OutputConfig{
			Dir: "out/runs",
		},
	}
}

// Load reads the YAML file over the defaults, applies environment overrides,
// and validates. An empty path returns validated defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Cache.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate applies the fail-fast checks of the run's fatal error class.
func (c *Config) Validate() error {
	if c.Engine.WindowSize < 2 {
		return fmt.Errorf("engine.window_size must be at least 2, got %d", c.Engine.WindowSize)
	}
	if c.Engine.MaxP < 0 || c.Engine.MaxQ < 0 {
		return fmt.Errorf("engine.max_p/max_q must be non-negative, got (%d,%d)", c.Engine.MaxP, c.Engine.MaxQ)
	}
	if c.Engine.MaxP == 0 && c.Engine.MaxQ == 0 {
		return fmt.Errorf("engine.max_p and max_q cannot both be 0: the candidate grid would be empty")
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must be non-negative, got %d", c.Engine.Workers)
	}
	if c.Eval.PeriodsPerYear <= 0 {
		return fmt.Errorf("eval.periods_per_year must be positive, got %d", c.Eval.PeriodsPerYear)
	}
	for name, s := range map[string]string{
		"eval.start": c.Eval.Start,
		"eval.end":   c.Eval.End,
		"data.from":  c.Data.From,
		"data.to":    c.Data.To,
	} {
		if s == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("%s: invalid date %q (want YYYY-MM-DD)", name, s)
		}
	}
	if c.Data.CSVPath != "" && c.Data.StooqSymbol != "" {
		return fmt.Errorf("data.csv_path and data.stooq_symbol are mutually exclusive")
	}
	if c.Cache.TTLSecs < 0 {
		return fmt.Errorf("cache.ttl_secs must be non-negative, got %d", c.Cache.TTLSecs)
	}
	if c.Postgres.TimeoutSecs <= 0 {
		return fmt.Errorf("postgres.timeout_secs must be positive, got %d", c.Postgres.TimeoutSecs)
	}
	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("monitor.port out of range: %d", c.Monitor.Port)
	}
	return nil
}

// EvalRange parses the evaluation sub-range, substituting the given fallbacks
// for unset bounds.
func (c *Config) EvalRange(fallbackStart, fallbackEnd time.Time) (time.Time, time.Time, error) {
	start, end := fallbackStart, fallbackEnd
	var err error
	if c.Eval.Start != "" {
		if start, err = time.Parse("2006-01-02", c.Eval.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("eval.start: %w", err)
		}
	}
	if c.Eval.End != "" {
		if end, err = time.Parse("2006-01-02", c.Eval.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("eval.end: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("eval range ends %s before it starts %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}
