// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppConfig holds all application configuration.
// It is instantiated by NewConfig() and passed to components that need it.
type AppConfig struct {
	Log        LogConfig        `mapstructure:"log"`
	Session    SessionConfig    `mapstructure:"session"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Server     ServerConfig     `mapstructure:"server"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// DatabaseConfig holds all database configuration.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// LogConfig holds comprehensive logging configuration
type LogConfig struct {
	Level    string            `mapstructure:"level"`
	Format   string            `mapstructure:"format"`
	Output   []LogOutputConfig `mapstructure:"output"`
	Levels   map[string]string `mapstructure:"levels"`
	Context  LogContextConfig  `mapstructure:"context"`
	Sampling LogSamplingConfig `mapstructure:"sampling"`
}

// LogOutputConfig defines where logs are written
type LogOutputConfig struct {
	Type    string          `mapstructure:"type"` // "file" or "console"
	Enabled bool            `mapstructure:"enabled"`
	Path    string          `mapstructure:"path"`
	Rotate  LogRotateConfig `mapstructure:"rotate"`
}

// LogRotateConfig defines log rotation settings
type LogRotateConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// LogContextConfig defines what context to include in logs
type LogContextConfig struct {
	IncludeCaller     bool   `mapstructure:"include_caller"`
	IncludeTimestamp  bool   `mapstructure:"include_timestamp"`
	IncludeStackTrace string `mapstructure:"include_stack_trace"`
}

// LogSamplingConfig defines log sampling settings
type LogSamplingConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Initial    uint32        `mapstructure:"initial"`
	Thereafter uint32        `mapstructure:"thereafter"`
	Tick       time.Duration `mapstructure:"tick"`
}

// SessionConfig describes the signed-in session the engine routes for.
// An empty Domain means nobody is signed in and the cross-domain rule is off.
type SessionConfig struct {
	Domain      string `mapstructure:"domain"`
	UserID      int64  `mapstructure:"user_id"`
	UserName    string `mapstructure:"user_name"`
	LargeScreen bool   `mapstructure:"large_screen"`
	Locale      string `mapstructure:"locale"`
	Online      bool   `mapstructure:"online"`
}

// SignedIn reports whether a domain is configured for the session.
func (s SessionConfig) SignedIn() bool {
	return s.Domain != ""
}

// NavigationConfig holds stack policy knobs.
type NavigationConfig struct {
	LandingKind string `mapstructure:"landing_kind"`
	BackAtRoot  string `mapstructure:"back_at_root"` // "ignore" or "exit"
}

// BackendConfig configures the resolution backend.
type BackendConfig struct {
	Database     DatabaseConfig `mapstructure:"database"`
	FetchTimeout time.Duration  `mapstructure:"fetch_timeout"`
	CacheTTL     time.Duration  `mapstructure:"cache_ttl"`
	FixturesPath string         `mapstructure:"fixtures_path"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // Empty = allow all (development); set for production
	CommandRate    float64  `mapstructure:"command_rate"`    // POSTs per second across clients; 0 disables
	CommandBurst   int      `mapstructure:"command_burst"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	Exporter    string  `mapstructure:"exporter"` // "none", "stdout" or "otlp"
	Metrics     string  `mapstructure:"metrics"`  // "none", "stdout" or "prometheus"
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// NewConfig creates a new AppConfig by reading from a file, environment variables,
// and applying defaults.
func NewConfig(configPath string) (*AppConfig, error) {
	cfg := defaultConfig()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/navlink/")
		v.AddConfigPath("$HOME/.navlink")
	}

	v.SetEnvPrefix("NAVLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, defaults apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *AppConfig {
	cfg := defaultConfig()
	return &cfg
}

// defaultConfig returns an AppConfig with default values.
func defaultConfig() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:  "INFO",
			Format: "console",
			Output: []LogOutputConfig{
				{
					Type:    "file",
					Enabled: true,
					Path:    "./logs/navlink.log",
					Rotate: LogRotateConfig{
						MaxSizeMB:  50,
						MaxBackups: 5,
						MaxAgeDays: 14,
						Compress:   true,
					},
				},
				{
					Type:    "console",
					Enabled: false, // Disabled by default for TUI
				},
			},
			Levels: map[string]string{
				"matcher":    "INFO",
				"signal":     "INFO",
				"resolver":   "INFO",
				"navigation": "INFO",
				"navigator":  "INFO",
				"store":      "WARN",
				"api":        "INFO",
				"tui":        "WARN",
				"messages":   "WARN",
				"telemetry":  "INFO",
			},
			Context: LogContextConfig{
				IncludeCaller:     true,
				IncludeTimestamp:  true,
				IncludeStackTrace: "ERROR",
			},
			Sampling: LogSamplingConfig{
				Enabled:    false,
				Initial:    100,
				Thereafter: 100,
				Tick:       time.Second,
			},
		},
		Session: SessionConfig{
			Locale: "en",
			Online: true,
		},
		Navigation: NavigationConfig{
			LandingKind: "dashboard",
			BackAtRoot:  "ignore",
		},
		Backend: BackendConfig{
			Database: DatabaseConfig{
				Driver:   "sqlite",
				Database: "navlink.db",
				Host:     "localhost",
				Port:     5432,
				SSLMode:  "disable",
			},
			FetchTimeout: 10 * time.Second,
			CacheTTL:     30 * time.Second,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			CommandRate:  50,
			CommandBurst: 100,
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			Metrics:     "none",
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "navlink",
			SampleRatio: 1.0,
		},
	}
}

// expandPaths expands ~ and environment variables in path configuration values
func (c *AppConfig) expandPaths() {
	if c.Backend.FixturesPath != "" {
		c.Backend.FixturesPath = expandPath(c.Backend.FixturesPath)
	}
	if c.Backend.Database.Driver == "sqlite" && c.Backend.Database.Database != ":memory:" {
		c.Backend.Database.Database = expandPath(c.Backend.Database.Database)
	}
	for i := range c.Log.Output {
		if c.Log.Output[i].Path != "" {
			c.Log.Output[i].Path = expandPath(c.Log.Output[i].Path)
		}
	}
}

// expandPath expands ~ to home directory and environment variables
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return os.ExpandEnv(path)
}

// validate checks if the configuration is valid.
func (c *AppConfig) validate() error {
	if c.Backend.Database.Driver == "" {
		return errors.New("backend.database.driver is required")
	}

	validLogLevels := map[string]bool{
		"TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true, "FATAL": true, "PANIC": true,
	}
	if !validLogLevels[strings.ToUpper(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.CommandRate < 0 || c.Server.CommandBurst < 0 {
		return errors.New("server.command_rate and server.command_burst must not be negative")
	}

	if c.Navigation.LandingKind == "" {
		return errors.New("navigation.landing_kind is required")
	}
	if c.Navigation.BackAtRoot != "ignore" && c.Navigation.BackAtRoot != "exit" {
		return fmt.Errorf("navigation.back_at_root must be 'ignore' or 'exit', got: %s", c.Navigation.BackAtRoot)
	}

	if c.Backend.FetchTimeout <= 0 {
		return fmt.Errorf("backend.fetch_timeout must be positive, got: %s", c.Backend.FetchTimeout)
	}
	if c.Backend.CacheTTL < 0 {
		return fmt.Errorf("backend.cache_ttl must not be negative, got: %s", c.Backend.CacheTTL)
	}

	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("telemetry.exporter must be 'none', 'stdout' or 'otlp', got: %s", c.Telemetry.Exporter)
	}
	switch c.Telemetry.Metrics {
	case "none", "stdout", "prometheus":
	default:
		return fmt.Errorf("telemetry.metrics must be 'none', 'stdout' or 'prometheus', got: %s", c.Telemetry.Metrics)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1], got: %v", c.Telemetry.SampleRatio)
	}

	return nil
}

// GetDSN returns the database connection string.
func (dc *DatabaseConfig) GetDSN() string {
	switch dc.Driver {
	case "sqlite":
		dsn := dc.Database
		if dsn == ":memory:" {
			dsn = "file::memory:?cache=shared"
		}
		return dsn
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dc.Host, dc.Port, dc.Username, dc.Password, dc.Database, dc.SSLMode)
	default:
		return dc.Database
	}
}
