package gc

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Default configuration values.
const (
	DefaultThreshold   = 100
	DefaultTargetRatio = 0.7
)

// Config holds the tuning parameters of a heap. Zero values mean the
// default.
type Config struct {
	// InitialThreshold is the number of allocated bytes above which an
	// allocation triggers a collection, until the threshold grows.
	InitialThreshold int `env:"GC_THRESHOLD"`

	// TargetRatio is the maximum ratio of allocated bytes to threshold after a
	// collection. If a collection leaves the heap fuller than that, the
	// threshold grows to bring the ratio back to TargetRatio, which amortizes
	// the cost of collections on a growing heap.
	TargetRatio float64 `env:"GC_TARGET_RATIO"`
}

// ConfigFromEnv loads the configuration from the environment variables
// <prefix>GC_THRESHOLD and <prefix>GC_TARGET_RATIO. Unset variables leave
// the default.
func ConfigFromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, env.Options{Prefix: prefix}); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration has invalid values.
func (c Config) Validate() error {
	if c.InitialThreshold < 0 {
		return fmt.Errorf("invalid threshold: %d", c.InitialThreshold)
	}
	if c.TargetRatio < 0 || c.TargetRatio > 1 {
		return fmt.Errorf("invalid target ratio: %g", c.TargetRatio)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.InitialThreshold <= 0 {
		c.InitialThreshold = DefaultThreshold
	}
	if c.TargetRatio <= 0 || c.TargetRatio > 1 {
		c.TargetRatio = DefaultTargetRatio
	}
	return c
}
