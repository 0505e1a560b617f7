package testsupport

import (
	"path/filepath"
	"testing"

	"tonearm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.General.Workers = 1
	cfg.General.CachePath = filepath.Join(base, "cache", "metadata.db")
	cfg.General.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDestructive enables destructive reconcile mode on the test config.
func WithDestructive() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Reconcile.Destructive = true
	}
}

// WithWorkers overrides the resolve pool size.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.General.Workers = workers
	}
}
