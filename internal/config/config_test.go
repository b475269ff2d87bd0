package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/internal/domain/model"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

const appYAML = `
foottraffic:
  batch:
    backfill_days: 7
  mail:
    source: directory
    storage: inbox
    prefix: reports/
  pipeline:
    report_timezone: Australia/Sydney
    aliases:
      "MEL CBD": Melbourne
    schedule:
      Melbourne:
        fri: {open: 12, close: 24}
  series:
    storage: series
    object: ${FT_TEST_SERIES_OBJECT}
    compression: gzip
    mirror: mirror
  export:
    storage: web
    indent: true
`

func load(t *testing.T, doc string) (*appConfig.AppConfig, error) {
	t.Helper()
	return appConfig.Load(&coreConfig.Config{EmbeddedConfig: coreConfig.EmbeddedConfig(doc)})
}

func TestLoad_DefaultsWhenDocumentIsEmpty(t *testing.T) {
	cfg, err := load(t, "foottraffic: {}\n")
	require.NoError(t, err)
	assert.Equal(t, appConfig.NewAppConfig(), cfg)
	assert.Equal(t, 0.95, cfg.Foottraffic.Pipeline.EnteringMultiplier)
	assert.Equal(t, "gmail", cfg.Foottraffic.Mail.Source)
}

func TestLoad_YamlOverridesAndExpansion(t *testing.T) {
	t.Setenv("FT_TEST_SERIES_OBJECT", "series/traffic.parquet")

	cfg, err := load(t, appYAML)
	require.NoError(t, err)
	app := cfg.Foottraffic

	assert.Equal(t, "directory", app.Mail.Source)
	assert.Equal(t, "inbox", app.Mail.Storage)
	assert.Equal(t, "no-reply@vemcount.com", app.Mail.Sender)
	assert.Equal(t, "series/traffic.parquet", app.Series.Object)
	assert.Equal(t, "gzip", app.Series.Compression)
	assert.Equal(t, "mirror", app.Series.Mirror)
	assert.Equal(t, "web", app.Export.Storage)
	assert.Equal(t, "traffic_data_compact.json", app.Export.Object)
	assert.True(t, app.Export.Indent)

	loc, err := app.Pipeline.Location()
	require.NoError(t, err)
	assert.Equal(t, "Australia/Sydney", loc.String())

	aliases, err := app.Pipeline.VenueAliases()
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Venue{"MEL CBD": model.VenueMelbourne}, aliases)

	sched, err := app.Pipeline.BuildSchedule()
	require.NoError(t, err)
	open, err := sched.IsOpen(model.VenueMelbourne, time.Friday, 24)
	require.NoError(t, err)
	assert.False(t, open)
	open, err = sched.IsOpen(model.VenueSydney, time.Friday, 24)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FOOTTRAFFIC_PIPELINE_ENTERING_MULTIPLIER", "0.9")
	t.Setenv("FOOTTRAFFIC_MAIL_KEYWORDS", "traffic, mel")

	cfg, err := load(t, "foottraffic: {}\n")
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Foottraffic.Pipeline.EnteringMultiplier)
	assert.Equal(t, []string{"traffic", "mel"}, cfg.Foottraffic.Mail.Keywords)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"source":      "foottraffic:\n  mail:\n    source: imap\n",
		"directory":   "foottraffic:\n  mail:\n    source: directory\n",
		"multiplier":  "foottraffic:\n  pipeline:\n    entering_multiplier: 0\n",
		"timezone":    "foottraffic:\n  pipeline:\n    report_timezone: Mars/Olympus\n",
		"alias":       "foottraffic:\n  pipeline:\n    aliases: {bne: Brisbane}\n",
		"schedule":    "foottraffic:\n  pipeline:\n    schedule: {Melbourne: {mon: {open: 20, close: 10}}}\n",
		"compression": "foottraffic:\n  series:\n    compression: zstd\n",
		"token":       "foottraffic:\n  mail:\n    token_file: token.json\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, doc)
			require.Error(t, err)
			assert.True(t, exception.IsBatchError(err))
		})
	}
}
