// Package config loads and validates meshrpc client configuration from TOML
// files. A missing file yields the defaults, so a zero-config client works
// out of the box.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values
const (
	DefaultMaxConnections = 4
	DefaultWriteTimeout   = 5 * time.Second
	DefaultNetwork        = "tcp"
	DefaultDialTimeout    = 10 * time.Second
	DefaultSAMAddress     = "127.0.0.1:7656"
	DefaultTunnelName     = "meshrpc"
	DefaultMetricsListen  = "127.0.0.1:9600"
)

// Config holds all configuration for a meshrpc client.
type Config struct {
	Pool      PoolConfig      `toml:"pool"`
	Transport TransportConfig `toml:"transport"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// PoolConfig contains per-endpoint pooling settings.
type PoolConfig struct {
	// MaxConnections is the connection limit per endpoint
	MaxConnections int `toml:"max_connections"`
	// WriteTimeout is how long a request may wait in the pending queue
	// before it is failed instead of written
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// TransportConfig contains connection establishment settings.
type TransportConfig struct {
	// Network selects the transport: "tcp" or "i2p"
	Network string `toml:"network"`
	// DialTimeout bounds TCP connection establishment
	DialTimeout time.Duration `toml:"dial_timeout"`
	// SAMAddress is the SAM bridge address (host:port), used when
	// Network is "i2p"
	SAMAddress string `toml:"sam_address"`
	// TunnelName names the client's I2P session
	TunnelName string `toml:"tunnel_name"`
}

// MetricsConfig contains observability settings.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP endpoint is started
	Enabled bool `toml:"enabled"`
	// Listen is the address the metrics server binds to
	Listen string `toml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxConnections: DefaultMaxConnections,
			WriteTimeout:   DefaultWriteTimeout,
		},
		Transport: TransportConfig{
			Network:     DefaultNetwork,
			DialTimeout: DefaultDialTimeout,
			SAMAddress:  DefaultSAMAddress,
			TunnelName:  DefaultTunnelName,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
		},
	}
}

// LoadConfig reads configuration from a TOML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a TOML file.
// It creates the parent directory if it doesn't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Pool.MaxConnections < 1 {
		return errors.New("pool.max_connections must be at least 1")
	}
	if c.Pool.WriteTimeout <= 0 {
		return errors.New("pool.write_timeout must be positive")
	}
	if c.Transport.Network != "tcp" && c.Transport.Network != "i2p" {
		return errors.New("transport.network must be \"tcp\" or \"i2p\"")
	}
	if c.Transport.DialTimeout <= 0 {
		return errors.New("transport.dial_timeout must be positive")
	}
	if c.Transport.Network == "i2p" {
		if c.Transport.SAMAddress == "" {
			return errors.New("transport.sam_address is required for i2p")
		}
		if c.Transport.TunnelName == "" {
			return errors.New("transport.tunnel_name is required for i2p")
		}
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics are enabled")
	}
	return nil
}
