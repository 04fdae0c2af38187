// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DispatchQueueSize bounds the in-memory hook dispatch queue.
	DispatchQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of dispatch workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxRangeLimit caps GET /occurrences?limit.
	MaxRangeLimit int `koanf:"max_range_limit"`

	// DefaultRangeLimit applies when a query omits limit.
	DefaultRangeLimit int `koanf:"default_range_limit"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use (e.g.,
// loading from env/files) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		DispatchQueueSize: 4096,
		WorkerCount:       runtime.NumCPU() * 2,
		MaxRangeLimit:     1000,
		DefaultRangeLimit: 100,
	}
	return c
}
