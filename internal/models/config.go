package models

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Push     PushConfig     `json:"push"`
	Dispatch DispatchConfig `json:"dispatch"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// PushConfig holds push provider related configurations
type PushConfig struct {
	APIBaseURL string `json:"api_base_url"`
	TimeoutSec int    `json:"timeoutSec"`
}

// DispatchConfig holds dispatch pipeline related configurations
type DispatchConfig struct {
	// MaxLocationAgeMinutes drops location records older than the given
	// age from proximity matching. Zero disables the cutoff, matching
	// the historical behavior of not validating staleness.
	MaxLocationAgeMinutes  int `json:"maxLocationAgeMinutes"`
	ExpirySweepIntervalMin int `json:"expirySweepIntervalMin"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry related configurations
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
