package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/viper"
)

// Config is the service configuration. Curve coefficients travel as decimal
// strings because they exceed every native integer type.
type Config struct {
	InitialPrice  string `mapstructure:"initial_price"`
	Slope         string `mapstructure:"slope"`
	ListenAddr    string `mapstructure:"listen_addr"`
	PostgresURL   string `mapstructure:"postgres_url"`
	RailURL       string `mapstructure:"rail_url"`
	ShutdownGrace int    `mapstructure:"shutdown_grace_seconds"`
}

const (
	DefaultListenAddr    = ":8080"
	DefaultShutdownGrace = 10
)

// LoadConfig reads the config file at path, applies defaults and CURVED_*
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":            DefaultListenAddr,
		"shutdown_grace_seconds": DefaultShutdownGrace,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	initial, err := parseScaled(cfg.InitialPrice)
	if err != nil {
		return fmt.Errorf("invalid initial_price: %w", err)
	}
	slope, err := parseScaled(cfg.Slope)
	if err != nil {
		return fmt.Errorf("invalid slope: %w", err)
	}
	if initial.IsZero() && slope.IsZero() {
		return errors.New("initial_price and slope cannot both be zero")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr cannot be empty")
	}
	if cfg.ShutdownGrace <= 0 {
		return errors.New("invalid shutdown_grace_seconds")
	}
	return nil
}

func parseScaled(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("value is required")
	}
	return uint256.FromDecimal(trimmed)
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("CURVED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if env := v.GetString("POSTGRES_URL"); env != "" {
		cfg.PostgresURL = env
	}
	if env := v.GetString("RAIL_URL"); env != "" {
		cfg.RailURL = env
	}
	if env := v.GetString("LISTEN_ADDR"); env != "" {
		cfg.ListenAddr = env
	}
}
