package config

import "errors"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidBackend = errors.New("invalid backend")
	ErrMissingValue   = errors.New("required configuration value is missing")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	FlagKey       = "flag"
)
