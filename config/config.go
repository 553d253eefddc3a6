// Package config loads and validates the bridge's runtime configuration:
// the DTC listener, admin HTTP surface, CDP credentials, and the set of
// exchange feed adapters to run.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultBindAddress      = "0.0.0.0"
	defaultPort             = 11099
	defaultMaxClients       = 64
	defaultHeartbeatSeconds = 15
	defaultServerName       = "coinbase-dtc-bridge"

	SampleNodeConfigPath = "bridge.example.toml"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")
)

type (
	// Config defines every configuration parameter the bridge needs to
	// start serving DTC clients.
	Config struct {
		ConfigDir  string          `mapstructure:"config_dir"`
		Server     Server          `mapstructure:"server" validate:"required"`
		Admin      Admin           `mapstructure:"admin"`
		Auth       Auth            `mapstructure:"auth"`
		Symbols    []SymbolConfig  `mapstructure:"symbols" validate:"dive"`
		Exchanges  []ExchangeConfig `mapstructure:"exchanges" validate:"required,gt=0,dive,required"`
	}

	// Server defines the DTC TCP listener's configuration.
	Server struct {
		BindAddress       string `mapstructure:"bind_address" validate:"required"`
		Port              int    `mapstructure:"port" validate:"required"`
		MaxClients        int    `mapstructure:"max_clients" validate:"required"`
		HeartbeatInterval string `mapstructure:"heartbeat_interval" validate:"required"`
		ReconnectAddress  string `mapstructure:"reconnect_address"`
		ServerName        string `mapstructure:"server_name"`
		RequireAuth       bool   `mapstructure:"require_auth"`
		Username          string `mapstructure:"username"`
		Password          string `mapstructure:"password"`
	}

	// Admin defines the read-only HTTP status surface.
	Admin struct {
		ListenAddr     string   `mapstructure:"listen_addr"`
		VerboseCORS    bool     `mapstructure:"verbose_cors"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}

	// Auth defines where to find Coinbase CDP credentials. Leaving every
	// field empty runs the bridge in public, unauthenticated mode against
	// Coinbase's public market data endpoints.
	Auth struct {
		EnvKeyVar        string `mapstructure:"env_key_var"`
		EnvPrivateKeyVar string `mapstructure:"env_private_key_var"`
		KeyFilePath      string `mapstructure:"key_file_path"`
	}

	// SymbolConfig seeds an extra tradable instrument beyond the built-in
	// default catalog.
	SymbolConfig struct {
		Base           string `mapstructure:"base" validate:"required"`
		Quote          string `mapstructure:"quote" validate:"required"`
		PriceIncrement string `mapstructure:"price_increment" validate:"required"`
		SizeIncrement  string `mapstructure:"size_increment" validate:"required"`
	}

	// ExchangeConfig enables one feed.Adapter and its connection settings.
	ExchangeConfig struct {
		Name              string `mapstructure:"name" validate:"required"`
		WebsocketEndpoint string `mapstructure:"websocket_endpoint"`
		RESTEndpoint      string `mapstructure:"rest_endpoint"`
	}
)

// exchangeValidation is custom validation for the ExchangeConfig struct.
func exchangeValidation(sl validator.StructLevel) {
	ec := sl.Current().Interface().(ExchangeConfig)
	if _, ok := SupportedExchanges[ec.Name]; !ok {
		sl.ReportError(ec.Name, "name", "Name", "unsupportedExchange", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	if err := c.validateHeartbeatInterval(); err != nil {
		return err
	}
	validate.RegisterStructValidation(exchangeValidation, ExchangeConfig{})
	return validate.Struct(c)
}

func (c Config) validateHeartbeatInterval() error {
	if _, err := time.ParseDuration(c.Server.HeartbeatInterval); err != nil {
		return fmt.Errorf("server.heartbeat_interval must be a duration: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.BindAddress == "" {
		c.Server.BindAddress = defaultBindAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxClients == 0 {
		c.Server.MaxClients = defaultMaxClients
	}
	if c.Server.HeartbeatInterval == "" {
		c.Server.HeartbeatInterval = (time.Duration(defaultHeartbeatSeconds) * time.Second).String()
	}
	if c.Server.ServerName == "" {
		c.Server.ServerName = defaultServerName
	}
}

// HeartbeatInterval parses Server.HeartbeatInterval; Validate guarantees
// this always succeeds once a Config has passed validation.
func (c Config) HeartbeatInterval() time.Duration {
	d, _ := time.ParseDuration(c.Server.HeartbeatInterval)
	return d
}

// ExchangeNames returns every enabled exchange name in declaration order.
func (c Config) ExchangeNames() []string {
	names := make([]string, 0, len(c.Exchanges))
	for _, e := range c.Exchanges {
		names = append(names, e.Name)
	}
	return names
}
