// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	// EnvConfigJSON holds a JSON document merged over the config file.
	EnvConfigJSON = "AUTHCHAIN_CONFIG_JSON"

	// DefaultPath is used if no config path is given.
	DefaultPath = "./etc/"

	// DefaultIdentityAttribute is the request local holding the identity.
	DefaultIdentityAttribute = "identity"

	// DefaultAuthTimeout bounds the adapter chain of one request.
	DefaultAuthTimeout = 30 * time.Second

	mainConfigFile = "main.toml"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, mainConfigFile))

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		if err := decodeAndMergeConfig(v, configAsJSON); err != nil {
			return Config{}, err
		}
	}

	if err := v.Unmarshal(&c, decoderOptions...); err != nil {
		return Config{}, errors.Wrap(errors.WithMessage(ErrInvalidConfig, err.Error()), "failed to decode config")
	}

	setDefaults(&c)

	return c, validate(&c)
}

var decoderOptions = []viper.DecoderConfigOption{ //nolint:gochecknoglobals
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
	func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	},
}

func decodeAndMergeConfig(v *viper.Viper, configAsJSON string) error {
	v.SetConfigType("json")

	if err := v.MergeConfig(strings.NewReader(configAsJSON)); err != nil {
		return errors.Wrap(err, "failed to read config from "+EnvConfigJSON)
	}

	return nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(redact(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(redact(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// redact returns a copy of c without secrets.
func redact(c Config) Config {
	adapters := make([]Adapter, len(c.Auth.Adapters))

	for i, a := range c.Auth.Adapters {
		if a.LDAP != nil && a.LDAP.BindPW != "" {
			ldapCfg := *a.LDAP
			ldapCfg.BindPW = "********"
			a.LDAP = &ldapCfg
		}

		adapters[i] = a
	}

	c.Auth.Adapters = adapters

	return c
}

func setDefaults(c *Config) {
	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Webserver.IdentityAttribute == "" {
		c.Webserver.IdentityAttribute = DefaultIdentityAttribute
	}

	if c.Webserver.AuthTimeout <= 0 {
		c.Webserver.AuthTimeout = DefaultAuthTimeout
	}
}

// validate checks the webserver settings and the adapter chain.
func validate(c *Config) error {
	// validate webserver listening port
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	// validate access-control-allow-origin
	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.WithMessage(ErrInvalidConfig, err.Error()), invalidErrMessage)
	}

	return validateAdapters(c.Auth.Adapters)
}

func validateAdapters(adapters []Adapter) error {
	if len(adapters) == 0 {
		return ErrNoAdapters
	}

	names := make(map[string]struct{}, len(adapters))

	for i, a := range adapters {
		if _, ok := names[a.Name]; ok {
			return errors.Wrap(ErrDuplicateAdapter, a.Name)
		}

		names[a.Name] = struct{}{}

		if (a.LDAP != nil && a.Type != AdapterLDAP) || (a.OIDC != nil && a.Type != AdapterOIDC) {
			return errors.Wrap(ErrAdapterSection, a.Name)
		}

		if a.Type == AdapterNone && i != len(adapters)-1 {
			log.Warn().
				Str("adapter", a.Name).
				Msg("none adapter always matches, adapters listed after it are never tried")
		}
	}

	return nil
}
