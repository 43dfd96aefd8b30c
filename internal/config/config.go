package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"crewsignal/internal/constants"
	"crewsignal/internal/models"
	"crewsignal/internal/security"
)

var (
	ErrMissingDBPath  = models.ConfigError{Message: "missing database path"}
	ErrMissingPushURL = models.ConfigError{Message: "missing push provider API URL"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Push.APIBaseURL == "" {
		return ErrMissingPushURL
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Push.TimeoutSec <= 0 {
		c.Push.TimeoutSec = constants.DefaultPushTimeoutSec
	}
	if c.Dispatch.ExpirySweepIntervalMin <= 0 {
		c.Dispatch.ExpirySweepIntervalMin = constants.DefaultExpirySweepIntervalMin
	}
	if c.Dispatch.MaxLocationAgeMinutes < 0 {
		return models.ConfigError{Message: "maxLocationAgeMinutes cannot be negative"}
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("CREWSIGNAL_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv("CREWSIGNAL_PUSH_API_URL"); url != "" {
		c.Push.APIBaseURL = url
	}
	if port := os.Getenv("CREWSIGNAL_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Server.Port = parsed
		}
	}
	if level := os.Getenv("CREWSIGNAL_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
