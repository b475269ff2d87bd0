// Package config holds the application sections of the foottraffic configuration document.
// Framework sections (batch, system, metrics, telemetry, adapter) live in pkg/batch/core/config.
package config

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/domain/schedule"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

// MailConfig configures report retrieval.
type MailConfig struct {
	// Source is "gmail" or "directory".
	Source string `yaml:"source" validate:"oneof=gmail directory"`
	// Sender is the address the reports come from.
	Sender string `yaml:"sender" validate:"required_if=Source gmail"`
	// Query holds extra Gmail search terms appended to the generated query.
	Query string `yaml:"query"`
	// User is the Gmail user id; "me" is the authenticated account.
	User string `yaml:"user"`
	// CredentialsFile is a service account key. Ignored when TokenFile is set.
	CredentialsFile string `yaml:"credentials_file"`
	// ClientSecretFile and TokenFile hold an installed-app OAuth client and its saved token.
	ClientSecretFile string `yaml:"client_secret_file" validate:"required_with=TokenFile"`
	TokenFile        string `yaml:"token_file"`
	// RequestsPerSecond and Burst pace Gmail API calls.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" validate:"gte=1"`
	// Keywords are file name fragments identifying a report attachment.
	Keywords []string `yaml:"keywords"`
	// Storage and Prefix locate manually downloaded reports for the directory source.
	Storage string `yaml:"storage" validate:"required_if=Source directory"`
	Prefix  string `yaml:"prefix"`
}

// PipelineConfig configures normalization.
type PipelineConfig struct {
	EnteringMultiplier float64 `yaml:"entering_multiplier" validate:"gt=0"`
	// ReportTimezone is the zone the data date is derived in.
	ReportTimezone string `yaml:"report_timezone" validate:"required"`
	// Aliases maps additional venue spellings to "Melbourne" or "Sydney".
	Aliases map[string]string `yaml:"aliases"`
	// Schedule overrides the default opening hours.
	Schedule schedule.Definition `yaml:"schedule"`
}

// SeriesConfig configures the persisted series.
type SeriesConfig struct {
	// Storage is the adapter.storage connection holding the parquet object.
	Storage     string `yaml:"storage" validate:"required"`
	Object      string `yaml:"object" validate:"required"`
	Compression string `yaml:"compression" validate:"oneof=snappy gzip uncompressed"`
	// Mirror, when set, names the adapter.database connection the series is mirrored to.
	Mirror string `yaml:"mirror"`
	// MigrationDir is the migration directory for the mirror; empty uses the database type.
	MigrationDir string `yaml:"migration_dir"`
}

// ExportConfig configures the dashboard export.
type ExportConfig struct {
	Storage string `yaml:"storage" validate:"required"`
	Object  string `yaml:"object" validate:"required"`
	Indent  bool   `yaml:"indent"`
}

// AppSection is the application part of the "foottraffic" document.
type AppSection struct {
	Mail     MailConfig     `yaml:"mail"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Series   SeriesConfig   `yaml:"series"`
	Export   ExportConfig   `yaml:"export"`
}

// AppConfig is the root of the application configuration.
type AppConfig struct {
	Foottraffic AppSection `yaml:"foottraffic"`
}

// NewAppConfig returns the defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Foottraffic: AppSection{
			Mail: MailConfig{
				Source:            "gmail",
				Sender:            "no-reply@vemcount.com",
				User:              "me",
				RequestsPerSecond: 5,
				Burst:             5,
				Keywords:          []string{"traffic"},
			},
			Pipeline: PipelineConfig{
				EnteringMultiplier: 0.95,
				ReportTimezone:     "Australia/Melbourne",
			},
			Series: SeriesConfig{
				Storage:     "data",
				Object:      "hourly_foot_traffic.parquet",
				Compression: "snappy",
			},
			Export: ExportConfig{
				Storage: "data",
				Object:  "traffic_data_compact.json",
			},
		},
	}
}

// Load decodes the application sections from the document cfg was loaded from.
func Load(cfg *coreConfig.Config) (*AppConfig, error) {
	app := NewAppConfig()
	if err := coreConfig.DecodeDocument(cfg.EmbeddedConfig, app); err != nil {
		return nil, exception.NewBatchError("config", "failed to load application config", err, false, false)
	}
	if err := configbinder.Validator().Struct(app); err != nil {
		return nil, exception.NewBatchError("config", "application configuration is invalid", err, false, false)
	}
	if _, err := app.Foottraffic.Pipeline.Location(); err != nil {
		return nil, exception.NewBatchError("config", "unknown report timezone", err, false, false)
	}
	if _, err := app.Foottraffic.Pipeline.BuildSchedule(); err != nil {
		return nil, exception.NewBatchError("config", "invalid opening hours", err, false, false)
	}
	if _, err := app.Foottraffic.Pipeline.VenueAliases(); err != nil {
		return nil, exception.NewBatchError("config", "invalid venue aliases", err, false, false)
	}
	return app, nil
}

// Location returns the report timezone.
func (p PipelineConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.ReportTimezone)
}

// BuildSchedule returns the default schedule overlaid with the configured overrides.
func (p PipelineConfig) BuildSchedule() (*schedule.Schedule, error) {
	return schedule.FromDefinition(p.Schedule)
}

// VenueAliases resolves the configured aliases to venues.
func (p PipelineConfig) VenueAliases() (map[string]model.Venue, error) {
	out := make(map[string]model.Venue, len(p.Aliases))
	for alias, name := range p.Aliases {
		v := model.Venue(name)
		if !v.Valid() {
			return nil, fmt.Errorf("alias %q: %w: %q", alias, model.ErrUnknownVenue, name)
		}
		out[alias] = v
	}
	return out, nil
}

// Module provides *AppConfig.
var Module = fx.Options(
	fx.Provide(Load),
)
