// Package config loads process configuration for cmd/restatevm and
// internal/hostserver: a Config struct decoded via viper/mapstructure,
// validated with validator/v10, following the teacher's pkg/config
// precedence chain (CLI flags > environment > YAML file > defaults).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix is the environment variable prefix for all config overrides,
// e.g. RESTATEVM_LOGGING_LEVEL=DEBUG.
const envPrefix = "RESTATEVM"

// Config is the complete process configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Identity  IdentityConfig  `mapstructure:"identity" yaml:"identity"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`
	Protocol  ProtocolConfig  `mapstructure:"protocol" yaml:"protocol"`
}

// LoggingConfig controls internal/logger's behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing export.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ServerConfig controls internal/hostserver's HTTP/2 listener.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
}

// IdentityConfig configures internal/identity's request verifier.
type IdentityConfig struct {
	// Require rejects requests carrying no x-restate-jwt-v1 header when true.
	Require bool `mapstructure:"require" yaml:"require"`
	// PublicKeys lists the accepted publickeyv1_<base58> signing keys.
	PublicKeys []string `mapstructure:"public_keys" validate:"dive,startswith=publickeyv1_" yaml:"public_keys"`
}

// RetryConfig describes the default retry policy the host applies when an
// invocation errors, per internal/retry's policy kinds.
type RetryConfig struct {
	Kind            string         `mapstructure:"kind" validate:"required,oneof=infinite none fixed exponential" yaml:"kind"`
	InitialInterval time.Duration  `mapstructure:"initial_interval" yaml:"initial_interval"`
	Factor          float32        `mapstructure:"factor" yaml:"factor"`
	MaxInterval     *time.Duration `mapstructure:"max_interval" yaml:"max_interval,omitempty"`
	MaxAttempts     *uint32        `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
	MaxDuration     *time.Duration `mapstructure:"max_duration" yaml:"max_duration,omitempty"`
}

// ProtocolConfig controls service-protocol version negotiation strictness.
type ProtocolConfig struct {
	// StrictVersionNegotiation is not read: the invoke handler rejects a
	// content-type that doesn't map to a known wire.Version with 415
	// whatever its value.
	StrictVersionNegotiation bool `mapstructure:"strict_version_negotiation" yaml:"strict_version_negotiation"`
}

// Load reads the configuration file through viper and fills every field left
// at its zero value from the defaults. When no configuration file is found it
// returns DefaultConfig() as is, without environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration, returning a user-facing error when the
// requested file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "restatevm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "restatevm")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}
