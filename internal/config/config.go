package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tableserve/internal/errors"
)

const (
	DefaultPort     = 5000
	DefaultHost     = "0.0.0.0"
	DefaultDataFile = "Table_Input.csv"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Log       LogConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Host            string
	Port            int
	GinMode         string
	ShutdownTimeout time.Duration
}

// Addr is the listen address of the API server
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DataConfig describes the tabular source file
type DataConfig struct {
	File      string
	Delimiter rune
	Sheet     string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    int
	Enabled bool
}

// Addr is the listen address of the profiling server
func (p ProfilingConfig) Addr(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(p.Port))
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dataConfig, err := loadDataConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data configuration")
	}

	config := &Config{
		Server:    *loadServerConfig(),
		Data:      *dataConfig,
		Log:       LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
		Profiling: *loadProfilingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            getEnvOrDefault("HOST", DefaultHost),
		Port:            getEnvPortOrDefault("PORT", DefaultPort),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func loadDataConfig() (*DataConfig, error) {
	file := getEnvOrDefault("DATA_FILE", DefaultDataFile)

	delimiter := ','
	if strings.EqualFold(filepath.Ext(file), ".tsv") {
		delimiter = '\t'
	}
	if value, ok := os.LookupEnv("CSV_DELIMITER"); ok && value != "" {
		d, err := parseDelimiter(value)
		if err != nil {
			return nil, err
		}
		delimiter = d
	}

	return &DataConfig{
		File:      file,
		Delimiter: delimiter,
		Sheet:     os.Getenv("DATA_SHEET"),
	}, nil
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvPortOrDefault("PPROF_PORT", 6060),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

// parseDelimiter accepts a single character or the escapes \t and "tab".
func parseDelimiter(value string) (rune, error) {
	switch value {
	case `\t`, "tab", "TAB":
		return '\t', nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return 0, errors.ConfigInvalid("CSV_DELIMITER must be a single character")
	}
	r, _ := utf8.DecodeRuneInString(value)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, errors.ConfigInvalid("CSV_DELIMITER cannot be a quote or line break")
	}
	return r, nil
}

func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Data.File) == "" {
		return errors.ConfigInvalid("data file path is required")
	}
	if config.Profiling.Enabled && config.Profiling.Port == config.Server.Port {
		return errors.ConfigInvalid("PPROF_PORT must differ from PORT")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid("GIN_MODE must be one of debug, release, test")
	}
	if config.Server.ShutdownTimeout < 0 {
		return errors.ConfigInvalid("SHUTDOWN_TIMEOUT cannot be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvPortOrDefault falls back to defaultValue for missing, non-numeric or out-of-range ports.
func getEnvPortOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && port > 0 && port <= 65535 {
			return port
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
