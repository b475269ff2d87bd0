package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	gormSqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/foottraffic/internal/app"
	"github.com/tigerroll/foottraffic/internal/export"
	"github.com/tigerroll/foottraffic/internal/series"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

const document = `
foottraffic:
  system:
    timezone: Australia/Melbourne
    logging:
      level: WARN
  batch:
    job_name: footTrafficJob
    backfill_days: 30
    repository: mirror
  metrics:
    backend: prometheus
  mail:
    source: directory
    storage: inbox
  pipeline:
    report_timezone: Australia/Melbourne
  series:
    storage: data
    object: hourly_foot_traffic.parquet
    mirror: mirror
  export:
    storage: data
    object: traffic_data_compact.json
  adapter:
    storage:
      data:
        type: local
        base_dir: %[1]q
      inbox:
        type: local
        base_dir: %[2]q
    database:
      mirror:
        type: sqlite
        database: %[3]q
`

type fixture struct {
	cfg     *config.Config
	dataDir string
	dbPath  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dataDir: filepath.Join(root, "data"),
		dbPath:  filepath.Join(root, "mirror.db"),
	}
	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(f.dataDir, 0o755))
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	loc, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)
	received := time.Now().In(loc).AddDate(0, 0, -1).Format("2006-01-02")
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "Traffic By Hour "+received+".xlsx"), workbook(t), 0o644))

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(fmt.Sprintf(document, f.dataDir, inbox, f.dbPath)))
	require.NoError(t, err)
	f.cfg = cfg
	return f
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Yesterday"))
	rows := [][]interface{}{{"Date and time", "Mel Inside", "Mel Entering", "Syd Inside", "Syd Entering"}}
	for h := 0; h < 24; h++ {
		rows = append(rows, []interface{}{h, 10, 100, 20, 200})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Yesterday", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func run(t *testing.T, cfg *config.Config, backfillDays int) (fx.ShutdownSignal, *model.JobExecution) {
	t.Helper()
	var launcher *app.Launcher
	fxApp := fxtest.New(t,
		app.Options(context.Background(), cfg, backfillDays, []fx.Option{sqlite.Module}),
		fx.Populate(&launcher),
	)
	fxApp.RequireStart()
	var sig fx.ShutdownSignal
	select {
	case sig = <-fxApp.Wait():
	case <-time.After(30 * time.Second):
		t.Fatal("job did not finish")
	}
	fxApp.RequireStop()
	return sig, launcher.LastExecution()
}

func TestApplication_RunsJobEndToEnd(t *testing.T) {
	f := newFixture(t)

	sig, je := run(t, f.cfg, 0)
	require.NotNil(t, je)
	assert.Equal(t, 0, sig.ExitCode)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 4)
	assert.Equal(t, "migrateStep", je.StepExecutions[0].StepName)
	assert.Equal(t, "exportStep", je.StepExecutions[3].StepName)

	data, err := os.ReadFile(filepath.Join(f.dataDir, "traffic_data_compact.json"))
	require.NoError(t, err)
	var entries []export.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 48)
	for _, e := range entries {
		if e.Venue == "Sydney" {
			assert.Equal(t, 190.0, e.Entering)
			assert.Equal(t, 20.0, e.Inside)
		}
	}

	_, err = os.Stat(filepath.Join(f.dataDir, "hourly_foot_traffic.parquet"))
	require.NoError(t, err)

	db, err := gorm.Open(gormSqlite.Open(f.dbPath), &gorm.Config{})
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Table(series.TableName).Count(&n).Error)
	assert.EqualValues(t, 48, n)

	var status string
	require.NoError(t, db.Table("batch_job_execution").Where("id = ?", je.ID).Select("status").Scan(&status).Error)
	assert.Equal(t, "COMPLETED", status)
	require.NoError(t, db.Table("batch_step_execution").Where("job_execution_id = ?", je.ID).Count(&n).Error)
	assert.EqualValues(t, 4, n)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestApplication_SecondRunLeavesSeriesUnchanged(t *testing.T) {
	f := newFixture(t)

	_, first := run(t, f.cfg, 0)
	require.Equal(t, model.BatchStatusCompleted, first.Status)

	sig, second := run(t, f.cfg, 0)
	assert.Equal(t, 0, sig.ExitCode)
	require.Equal(t, model.BatchStatusCompleted, second.Status)
	assert.Equal(t, model.ExitStatusNoOp, second.StepExecutions[2].ExitStatus)
}

func TestApplication_InvalidBackfillFailsWithExitCode(t *testing.T) {
	f := newFixture(t)

	sig, je := run(t, f.cfg, -1)
	require.NotNil(t, je)
	assert.Equal(t, 1, sig.ExitCode)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Empty(t, je.StepExecutions)
}
