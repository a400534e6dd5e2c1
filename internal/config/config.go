// Package config provides configuration management for the catalog service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "APP"

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultProbePort       = 9090
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultSeedEnabled     = true
	DefaultWSBufferSize    = 16
	DefaultEnvFile         = ".env"
)

// DefaultCORSAllowedOrigins allows every origin.
var DefaultCORSAllowedOrigins = []string{"*"}

// Configuration keys.
const (
	KeyServerPort         = "server_port"
	KeyProbePort          = "probe_port"
	KeyLogLevel           = "log_level"
	KeyShutdownTimeout    = "shutdown_timeout"
	KeyMetricsEnabled     = "metrics_enabled"
	KeySeedEnabled        = "seed_enabled"
	KeyWSBufferSize       = "ws_buffer_size"
	KeyCORSAllowedOrigins = "cors_allowed_origins"
)

// Environment variable names.
const (
	EnvServerPort         = "APP_SERVER_PORT"
	EnvProbePort          = "APP_PROBE_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvSeedEnabled        = "APP_SEED_ENABLED"
	EnvWSBufferSize       = "APP_WS_BUFFER_SIZE"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvEnvFile            = "APP_ENV_FILE"
)

// Command-line flag names mapped to configuration keys.
var flagKeys = map[string]string{
	"server-port":          KeyServerPort,
	"probe-port":           KeyProbePort,
	"log-level":            KeyLogLevel,
	"shutdown-timeout":     KeyShutdownTimeout,
	"metrics-enabled":      KeyMetricsEnabled,
	"seed-enabled":         KeySeedEnabled,
	"ws-buffer-size":       KeyWSBufferSize,
	"cors-allowed-origins": KeyCORSAllowedOrigins,
}

// Config holds the application configuration.
type Config struct {
	ServerPort         int           `mapstructure:"server_port"`
	ProbePort          int           `mapstructure:"probe_port"` // 0 disables the probe server.
	LogLevel           string        `mapstructure:"log_level"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
	SeedEnabled        bool          `mapstructure:"seed_enabled"`
	WSBufferSize       int           `mapstructure:"ws_buffer_size"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidProbePort       = errors.New(
		"probe port must be between 0 and 65535",
	)
	ErrProbePortConflict = errors.New(
		"probe port must differ from server port when probe port is not 0",
	)
	ErrInvalidWSBufferSize = errors.New("websocket buffer size must be at least 1")
	ErrNoCORSOrigins       = errors.New("at least one CORS origin must be allowed")
)

// RegisterFlags defines the command-line flags understood by Load on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int("server-port", DefaultServerPort, "HTTP API port")
	flags.Int("probe-port", DefaultProbePort, "probe server port (0 disables)")
	flags.String("log-level", DefaultLogLevel, "log level: debug, info, warn, error")
	flags.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
	flags.Bool("metrics-enabled", DefaultMetricsEnabled, "expose Prometheus metrics")
	flags.Bool("seed-enabled", DefaultSeedEnabled, "load sample items at startup")
	flags.Int("ws-buffer-size", DefaultWSBufferSize, "per-client event buffer size")
	flags.StringSlice("cors-allowed-origins", DefaultCORSAllowedOrigins, "allowed CORS origins")
}

// Load reads configuration from defaults, an optional .env file, environment
// variables and flags, in increasing order of priority. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every configuration key with its default value.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerPort, DefaultServerPort)
	v.SetDefault(KeyProbePort, DefaultProbePort)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyShutdownTimeout, DefaultShutdownTimeout)
	v.SetDefault(KeyMetricsEnabled, DefaultMetricsEnabled)
	v.SetDefault(KeySeedEnabled, DefaultSeedEnabled)
	v.SetDefault(KeyWSBufferSize, DefaultWSBufferSize)
	v.SetDefault(KeyCORSAllowedOrigins, DefaultCORSAllowedOrigins)
}

// bindFlags binds the flags defined by RegisterFlags. Only flags set on the
// command line take precedence over the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	return nil
}

// loadEnvFile copies variables from the env file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func loadEnvFile() error {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.WSBufferSize < 1 {
		return ErrInvalidWSBufferSize
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
