package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"multasync/internal/constants"
	"multasync/internal/models"
	"multasync/internal/security"
)

var (
	ErrMissingAPIURL = models.ConfigError{Message: "missing municipal API base URL"}
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
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
	if c.API.BaseURL == "" {
		return ErrMissingAPIURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.API.SubmitTimeoutSec <= 0 {
		c.API.SubmitTimeoutSec = constants.DefaultSubmitTimeoutSec
	}
	if c.API.ProbeTimeoutSec <= 0 {
		c.API.ProbeTimeoutSec = constants.DefaultProbeTimeoutSec
	}
	if c.Database.MaxPayloadKB <= 0 {
		c.Database.MaxPayloadKB = constants.DefaultMaxPayloadKB
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
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}
	if c.Breaker.MaxFailures <= 0 {
		c.Breaker.MaxFailures = constants.DefaultBreakerMaxFailures
	}
	if c.Breaker.ResetTimeoutSec <= 0 {
		c.Breaker.ResetTimeoutSec = constants.DefaultBreakerResetTimeoutSec
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "multasync"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 0.1
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("MULTAS_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if path := os.Getenv("MULTASYNC_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}
