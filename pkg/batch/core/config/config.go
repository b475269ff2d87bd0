package config

// Package config provides the framework-level configuration of a batch application:
// system settings, job/retry settings, metrics and telemetry backends, and named adapter blocks.

// EmbeddedConfig holds the content of the YAML configuration file embedded in main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// RetryConfig holds configuration for retrying calls to external collaborators.
type RetryConfig struct {
	MaxAttempts         int      `yaml:"max_attempts" validate:"gte=1"`     // Total attempts including the first call.
	InitialInterval     int      `yaml:"initial_interval" validate:"gte=0"` // Initial backoff in milliseconds.
	MaxInterval         int      `yaml:"max_interval" validate:"gte=0"`     // Backoff cap in milliseconds.
	Factor              float64  `yaml:"factor" validate:"gte=1"`           // Multiplier applied to the interval after each attempt.
	RetryableExceptions []string `yaml:"retryable_exceptions"`              // Registered error names or message fragments that may be retried.
}

// BatchConfig holds configuration specific to the batch engine.
type BatchConfig struct {
	// JobName is the name of the job launched at startup.
	JobName string `yaml:"job_name" validate:"required"`
	// BackfillDays bounds how far back the mail collaborator looks for reports.
	BackfillDays int `yaml:"backfill_days" validate:"gte=1,lte=3650"`
	// Retry is the retry configuration for collaborator calls.
	Retry RetryConfig `yaml:"retry"`
	// Repository names the adapter.database connection keeping the run history.
	// Empty keeps it in memory for the lifetime of the process.
	Repository string `yaml:"repository"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level" validate:"required,oneof=TRACE DEBUG INFO WARN ERROR FATAL SILENT"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the timezone used to render run timestamps in logs (e.g., "UTC", "Australia/Melbourne").
	Timezone string `yaml:"timezone" validate:"required"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig selects the MetricRecorder backend.
type MetricsConfig struct {
	// Backend is one of "none", "prometheus" or "otel".
	Backend string `yaml:"backend" validate:"oneof=none prometheus otel"`
	// PushgatewayURL, when set with the prometheus backend, receives the registry at job end.
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	// PushJobName is the Pushgateway job label.
	PushJobName string `yaml:"push_job_name"`
}

// TelemetryConfig configures the OpenTelemetry SDK used for tracing and the otel metrics backend.
type TelemetryConfig struct {
	// Enabled turns on the OpenTelemetry SDK. When false, no-op providers are installed.
	Enabled bool `yaml:"enabled"`
	// Protocol is the exporter protocol: "grpc", "http" or "stdout".
	Protocol string `yaml:"protocol" validate:"oneof=grpc http stdout"`
	// Endpoint is the OTLP collector endpoint (host:port). Ignored for stdout.
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS for the OTLP exporters.
	Insecure bool `yaml:"insecure"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// ExportIntervalSeconds is the periodic metric reader interval.
	ExportIntervalSeconds int `yaml:"export_interval_seconds" validate:"gte=0"`
}

// FrameworkConfig holds all framework configuration under the "foottraffic" top-level key.
type FrameworkConfig struct {
	Batch     BatchConfig     `yaml:"batch"`
	System    SystemConfig    `yaml:"system"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// AdapterConfigs holds named adapter blocks, keyed first by kind ("storage", "database") and then by connection name.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure for the framework configuration.
type Config struct {
	Foottraffic FrameworkConfig `yaml:"foottraffic"`
	// EmbeddedConfig is the raw document the configuration was loaded from. Application
	// packages decode their own sections from it.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Foottraffic: FrameworkConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Batch: BatchConfig{
				JobName:      "footTrafficJob",
				BackfillDays: 30,
				Retry: RetryConfig{
					MaxAttempts:     3,
					InitialInterval: 1000,
					MaxInterval:     30000,
					Factor:          2.0,
					RetryableExceptions: []string{
						"context.DeadlineExceeded",
						"io.ErrUnexpectedEOF",
					},
				},
			},
			Metrics: MetricsConfig{
				Backend:     "none",
				PushJobName: "foottraffic",
			},
			Telemetry: TelemetryConfig{
				Enabled:               false,
				Protocol:              "grpc",
				Endpoint:              "localhost:4317",
				Insecure:              true,
				ServiceName:           "foottraffic",
				ExportIntervalSeconds: 15,
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}

// AdapterSection returns the named adapter blocks of the given kind ("storage", "database").
// A missing or malformed section yields nil.
func (c *Config) AdapterSection(kind string) map[string]interface{} {
	if c == nil || c.Foottraffic.AdapterConfigs == nil {
		return nil
	}
	section, ok := c.Foottraffic.AdapterConfigs[kind].(map[string]interface{})
	if !ok {
		return nil
	}
	return section
}
