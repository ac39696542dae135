// Package config loads tool settings from an optional JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings holds all configuration for the tool. Credentials themselves live
// in the credential store, not here.
type Settings struct {
	DBPath          string   `json:"db_path" validate:"required"`
	CallbackPort    int      `json:"callback_port" validate:"min=1,max=65535"`
	ProbeTimeout    Duration `json:"probe_timeout" validate:"min=1s"`
	ExchangeTimeout Duration `json:"exchange_timeout" validate:"min=1s"`
	RequestTimeout  Duration `json:"request_timeout" validate:"min=1s"`
}

// Duration is a wrapper around time.Duration that implements JSON
// marshaling/unmarshaling.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration")
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "x-post-cli")
}

// Default returns the settings used when no config file is present.
func Default() *Settings {
	return &Settings{
		DBPath:          filepath.Join(DefaultDir(), "credentials.db"),
		CallbackPort:    8000,
		ProbeTimeout:    Duration{10 * time.Second},
		ExchangeTimeout: Duration{30 * time.Second},
		RequestTimeout:  Duration{30 * time.Second},
	}
}

// Load reads configuration from path, overrides with environment variables,
// and validates the result. A missing file is not an error: defaults apply.
func Load(path string) (*Settings, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides overrides config fields with environment variables.
func (c *Settings) applyEnvOverrides() error {
	if v := os.Getenv("X_POST_DB_PATH"); v != "" {
		c.DBPath = v
	}

	if v := os.Getenv("X_POST_CALLBACK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing X_POST_CALLBACK_PORT: %w", err)
		}
		c.CallbackPort = port
	}

	if v := os.Getenv("X_POST_PROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing X_POST_PROBE_TIMEOUT: %w", err)
		}
		c.ProbeTimeout = Duration{d}
	}

	if v := os.Getenv("X_POST_EXCHANGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing X_POST_EXCHANGE_TIMEOUT: %w", err)
		}
		c.ExchangeTimeout = Duration{d}
	}

	if v := os.Getenv("X_POST_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing X_POST_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = Duration{d}
	}

	return nil
}

// validate checks the configuration for errors.
func (c *Settings) validate() error {
	validate := validator.New()

	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if duration, ok := field.Interface().(Duration); ok {
			return duration.Duration
		}
		return nil
	}, Duration{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}
