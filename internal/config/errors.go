package config

import (
	"errors"
)

// Configuration failures. Loader and validator errors wrap one of these.
var (
	// ErrInvalidConfig marks a configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a defaults, file or env layer that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
