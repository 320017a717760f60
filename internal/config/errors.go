package config

import (
	"fmt"

	"github.com/authchain/authchain/internal/auth"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = fmt.Errorf("%w: toml config webserver.url can not be empty", auth.ErrConfiguration)

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = fmt.Errorf(
		"%w: toml config webserver.port listening port can not be 0", auth.ErrConfiguration)

	// ErrNoAdapters error if no auth adapter is configured.
	ErrNoAdapters = fmt.Errorf("%w: at least one auth adapter must be configured", auth.ErrConfiguration)

	// ErrDuplicateAdapter error if two adapters share a name.
	ErrDuplicateAdapter = fmt.Errorf("%w: auth adapter names must be unique", auth.ErrConfiguration)

	// ErrAdapterSection error if an adapter carries the options section of another type.
	ErrAdapterSection = fmt.Errorf("%w: auth adapter options do not match its type", auth.ErrConfiguration)

	// ErrInvalidConfig error if the config file can not be decoded or fails validation.
	ErrInvalidConfig = fmt.Errorf("%w: invalid config", auth.ErrConfiguration)
)
