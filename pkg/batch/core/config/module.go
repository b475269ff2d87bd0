package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Foottraffic.System.Logging
}

// NewBatchConfigProvider extracts *BatchConfig from *Config.
func NewBatchConfigProvider(cfg *Config) *BatchConfig {
	return &cfg.Foottraffic.Batch
}

// Module provides configuration sections and the EnvironmentExpander.
// *Config itself is supplied by the application after LoadConfig.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewBatchConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
