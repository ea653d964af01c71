// Package config loads solver settings from an optional YAML file with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the solver runtime configuration. Zero values fall back to
// the defaults applied by Load.
type Config struct {
	// Workers is the number of concurrent search runs. 0 means NumCPU.
	Workers int `yaml:"workers"`
	// MaxIters caps each run's iterations. 0 means uncapped.
	MaxIters int `yaml:"maxIters"`
	// TimeBudget caps each run's wall time. 0 means uncapped.
	TimeBudget time.Duration `yaml:"timeBudget"`
	// Patience is the stagnant-iteration count before a jump.
	Patience int `yaml:"patience"`
	// FracDropped is the customer share a jump drops.
	FracDropped float64 `yaml:"fracDropped"`
	// Constructor names a registered construction cascade.
	Constructor string `yaml:"constructor"`
	// Seed feeds the runs' RNGs. 0 means time-based.
	Seed int64 `yaml:"seed"`

	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string `yaml:"metricsAddr"`
	// DatabaseURL, when set, archives run results to Postgres.
	DatabaseURL string `yaml:"databaseUrl"`
	// RedisURL, when set, publishes best-solution events.
	RedisURL string `yaml:"redisUrl"`
}

// Defaults mirror the standalone-CLI behavior with no config present.
func Defaults() Config {
	return Config{
		TimeBudget:  60 * time.Second,
		Patience:    20000,
		FracDropped: 0.3,
		Constructor: "cw-sweep",
	}
}

// Load reads path when non-empty, then applies environment overrides.
// A missing file at an explicit path is an error; env-only operation
// passes an empty path.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SOLVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SOLVER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SOLVER_TIME_BUDGET"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SOLVER_TIME_BUDGET: %w", err)
		}
		c.TimeBudget = d
	}
	if v := os.Getenv("SOLVER_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SOLVER_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.FracDropped <= 0 || c.FracDropped >= 1 {
		return fmt.Errorf("fracDropped must be in (0,1), got %g", c.FracDropped)
	}
	if c.Patience <= 0 {
		return fmt.Errorf("patience must be > 0, got %d", c.Patience)
	}
	return nil
}
