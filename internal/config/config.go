package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DBPath       string
	MusicDir     string
	ARL          string
	Quality      string
	Concurrency  int
	RecheckHours int
	LogLevel     string
	LogFormat    string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultMusic := filepath.Join(home, "Music")

	return &Config{
		Port:         getEnv("PORT", constants.DefaultPort),
		DBPath:       getEnv("DB_PATH", constants.DefaultDBPath),
		MusicDir:     getEnv("MUSIC_DIR", defaultMusic),
		ARL:          getEnv("DISCSYNC_ARL", ""),
		Quality:      getEnv("QUALITY", constants.DefaultQuality),
		Concurrency:  getEnvInt("CONCURRENCY", constants.DefaultConcurrency),
		RecheckHours: getEnvInt("RECHECK_HOURS", constants.DefaultRecheckHours),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DBPath
	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate MusicDir
	if c.MusicDir == "" {
		errors = append(errors, "MUSIC_DIR cannot be empty")
	}

	// Validate ARL: without the session credential no catalog call can
	// authenticate, so refusing to start beats failing on first use
	if c.ARL == "" {
		errors = append(errors, "DISCSYNC_ARL cannot be empty")
	}

	// Validate Quality
	if _, err := domain.ParseQuality(c.Quality); err != nil {
		errors = append(errors, fmt.Sprintf("QUALITY must be one of: flac, mp3_320, mp3_128, got: %s", c.Quality))
	}

	// Validate Concurrency
	if c.Concurrency < 1 {
		errors = append(errors, fmt.Sprintf("CONCURRENCY must be at least 1, got: %d", c.Concurrency))
	}

	// Validate RecheckHours
	if c.RecheckHours < 0 {
		errors = append(errors, fmt.Sprintf("RECHECK_HOURS cannot be negative, got: %d", c.RecheckHours))
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
