// Package config provides Viper-based configuration loading for the clicker
// client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cyberinferno/clickergame/logger"
	"github.com/cyberinferno/clickergame/session"
	"github.com/cyberinferno/clickergame/wsclient"
)

// GamePath is the only endpoint path the game server serves.
const GamePath = "/game/"

// Store backend names.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ServerConfig locates the game server.
type ServerConfig struct {
	// URL is the ws:// endpoint; its path must be GamePath.
	URL string `mapstructure:"url"`
}

// ClientConfig tunes the connection and the event hand-off.
type ClientConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	CloseTimeout     time.Duration `mapstructure:"close_timeout"`
	SendQueueSize    int           `mapstructure:"send_queue_size"`
	EventBufferSize  int           `mapstructure:"event_buffer_size"`
	ReadLimit        int64         `mapstructure:"read_limit"`
}

// StoreConfig selects where the player's identity and balance are kept.
type StoreConfig struct {
	// Backend is one of "file", "memory", "redis".
	Backend string `mapstructure:"backend"`
	// Path is the YAML state file for the file backend.
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File optionally mirrors log entries to a file.
	File string `mapstructure:"file"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks every section of the configuration.
//
// Returns:
//   - nil if the configuration is valid, or one error listing all violations
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateClient(c.Client); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStore(c.Store); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Session converts the server and client sections into session settings.
func (c Config) Session() session.Config {
	return session.Config{
		Client: wsclient.Config{
			URL:              c.Server.URL,
			HandshakeTimeout: c.Client.HandshakeTimeout,
			WriteTimeout:     c.Client.WriteTimeout,
			CloseTimeout:     c.Client.CloseTimeout,
			SendQueueSize:    c.Client.SendQueueSize,
			ReadLimit:        c.Client.ReadLimit,
		},
		EventBufferSize: c.Client.EventBufferSize,
	}
}

// Logger converts the logging section into logger settings.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Service: "clicker",
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		File:    c.Logging.File,
	}
}

func validateServer(s ServerConfig) error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}

	var errs []string
	if u.Scheme != "ws" {
		errs = append(errs, fmt.Sprintf("server.url scheme must be ws, got %q", u.Scheme))
	}
	if u.Host == "" {
		errs = append(errs, "server.url must include a host")
	}
	if u.Path != GamePath {
		errs = append(errs, fmt.Sprintf("server.url path must be %s, got %q", GamePath, u.Path))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateClient(c ClientConfig) error {
	var errs []string
	if c.HandshakeTimeout < 0 {
		errs = append(errs, "client.handshake_timeout must not be negative")
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, "client.write_timeout must not be negative")
	}
	if c.CloseTimeout <= 0 {
		errs = append(errs, "client.close_timeout must be positive")
	}
	if c.SendQueueSize < 1 {
		errs = append(errs, fmt.Sprintf("client.send_queue_size must be >= 1, got %d", c.SendQueueSize))
	}
	if c.EventBufferSize < 0 {
		errs = append(errs, fmt.Sprintf("client.event_buffer_size must be >= 0, got %d", c.EventBufferSize))
	}
	if c.ReadLimit < 0 {
		errs = append(errs, "client.read_limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStore(s StoreConfig) error {
	switch s.Backend {
	case BackendFile:
		if s.Path == "" {
			return errors.New("store.path must not be empty for the file backend")
		}
	case BackendMemory:
	case BackendRedis:
		if s.Redis.Addr == "" {
			return errors.New("store.redis.addr must not be empty for the redis backend")
		}
		if s.Redis.DB < 0 {
			return fmt.Errorf("store.redis.db must be >= 0, got %d", s.Redis.DB)
		}
	default:
		return fmt.Errorf("store.backend must be one of [file, memory, redis], got %q", s.Backend)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result. An empty path skips the file
// and uses defaults plus environment.
//
// Parameters:
//   - path: YAML file to read; empty to skip
//
// Returns:
//   - A validated Config, or an error if the file cannot be read or the
//     result is invalid
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with CLICKER_ prefix
	v.SetEnvPrefix("CLICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Parameters:
//   - v: A Viper instance with defaults and sources already set
//
// Returns:
//   - A validated Config, or an error if decoding or validation fails
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", session.DefaultURL)

	v.SetDefault("client.handshake_timeout", "0s")
	v.SetDefault("client.write_timeout", "10s")
	v.SetDefault("client.close_timeout", "5s")
	v.SetDefault("client.send_queue_size", 64)
	v.SetDefault("client.event_buffer_size", 64)
	v.SetDefault("client.read_limit", 0)

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", "clicker-state.yaml")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "clicker:")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
}
