// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the on-disk location of the store.
	DBPath string `koanf:"db_path"`

	// DBInMemory keeps the store in memory. Useful for local runs.
	DBInMemory bool `koanf:"db_in_memory"`

	// QueueSize bounds the in-memory stats-refresh queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of stats-refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// HubBaseURL points at the dataset content server.
	HubBaseURL string `koanf:"hub_base_url"`

	// DatasetFPS converts frame counts into durations for datasets that
	// do not carry their own rate.
	DatasetFPS float64 `koanf:"dataset_fps"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              "./data/arena",
		DBInMemory:          false,
		QueueSize:           1024,
		WorkerCount:         runtime.NumCPU() * 2,
		HubBaseURL:          "https://datasets-server.huggingface.co",
		DatasetFPS:          15,
		MaxLeaderboardLimit: 100,
	}
}
