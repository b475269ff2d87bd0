package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(envFilePath string) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
		return
	}
	if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}
}

// DecodeDocument expands ${VAR} placeholders in raw, unmarshals it over target (which should
// already hold defaults) and then applies environment overrides rooted at the "foottraffic" key.
func DecodeDocument(raw []byte, target interface{}) error {
	expanded, err := NewOsEnvironmentExpander().Expand(raw)
	if err != nil {
		return fmt.Errorf("failed to expand environment placeholders: %w", err)
	}
	if err := yaml.Unmarshal(expanded, target); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := ApplyEnvOverrides(target, ""); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// loadConfig loads the framework configuration: defaults, then embedded YAML, then environment.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	LoadDotEnv(envFilePath)

	cfg := NewConfig()
	if err := DecodeDocument(embeddedConfig, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load embedded config", err, false, false)
	}
	cfg.EmbeddedConfig = embeddedConfig
	cfg.Foottraffic.System.Logging.Level = strings.ToUpper(cfg.Foottraffic.System.Logging.Level)
	if cfg.Foottraffic.AdapterConfigs == nil {
		cfg.Foottraffic.AdapterConfigs = map[string]interface{}{}
	}

	if err := configbinder.Validator().Struct(cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "configuration is invalid", err, false, false)
	}
	if err := validateExceptionClasses(cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to validate configured exception classes", err, false, false)
	}
	if _, err := time.LoadLocation(cfg.Foottraffic.System.Timezone); err != nil {
		return nil, exception.NewBatchError(moduleName, "unknown system timezone", err, false, false)
	}
	return cfg, nil
}

// LoadConfig loads configuration from the embedded document, a .env file and the environment.
// It is expected to be called once during startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// NewConfigProvider is an Fx provider that loads *Config and applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Foottraffic.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Foottraffic.System.Logging.Level)
	return cfg, nil
}

func validateExceptionClasses(cfg *Config) error {
	for _, name := range cfg.Foottraffic.Batch.Retry.RetryableExceptions {
		if !exception.IsErrorTypeRegistered(name) {
			return fmt.Errorf("retry configuration references unknown exception class: '%s'. Ensure it is registered", name)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// ApplyEnvOverrides walks target (a pointer to struct) and overrides fields from environment
// variables named after the upper-cased yaml tag path joined by "_", so the document root
// "foottraffic" yields the FOOTTRAFFIC_ prefix. Maps are left alone.
func ApplyEnvOverrides(target interface{}, prefix string) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ApplyEnvOverrides expects a pointer to struct, got %T", target)
	}
	return loadStructFromEnv(val.Elem(), prefix)
}

func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Map {
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
		logger.Debugf("Configuration field '%s' overridden by %s.", fieldType.Name, envVarName)
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(value, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p))
			}
		}
		field.Set(out)
	}
	return nil
}
