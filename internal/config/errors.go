package config

import (
	"errors"
)

// Sentinel error kinds for this package, checkable with errors.Is.
var (
	// ErrInvalidConfig marks a configuration that parsed but failed
	// validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure reading or parsing a config source.
	ErrLoadConfig = errors.New("load config failed")
)
