package models

// Config holds the application configuration
type Config struct {
	API      APIConfig      `json:"api"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Retry    RetryConfig    `json:"retry"`
	Breaker  BreakerConfig  `json:"breaker"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"logLevel"`
}

// APIConfig holds the municipal citation API configuration
type APIConfig struct {
	BaseURL          string `json:"baseUrl"`
	SubmitTimeoutSec int    `json:"submitTimeoutSec"`
	ProbeTimeoutSec  int    `json:"probeTimeoutSec"`
}

// DatabaseConfig holds the local record store configuration
type DatabaseConfig struct {
	Path         string `json:"path"`
	MaxPayloadKB int    `json:"maxPayloadKB"`
}

// ServerConfig holds the local diagnostics server configuration
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// RetryConfig holds backoff configuration for store initialization
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// BreakerConfig holds circuit breaker settings for citation submissions
type BreakerConfig struct {
	MaxFailures     int `json:"maxFailures"`
	ResetTimeoutSec int `json:"resetTimeoutSec"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
