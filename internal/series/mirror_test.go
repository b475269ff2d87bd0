package series_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/foottraffic/internal/series"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	coreAdapter "github.com/tigerroll/foottraffic/pkg/batch/core/adapter"
	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

func newSQLiteResolver(t *testing.T) database.DBConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Foottraffic.AdapterConfigs = map[string]interface{}{
		"database": map[string]interface{}{
			"mirror": map[string]interface{}{"type": "sqlite", "database": filepath.Join(t.TempDir(), "mirror.db")},
		},
	}
	r := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r
}

func TestMigrations_HaveEveryDialect(t *testing.T) {
	for _, dir := range []string{"sqlite", "postgres", "mysql"} {
		entries, err := os.ReadDir(filepath.Join("migrations", dir))
		require.NoError(t, err, dir)
		assert.Len(t, entries, 2, dir)
	}
}

func TestMirror_SyncUpsertsOnVenueAndDateTime(t *testing.T) {
	ctx := context.Background()
	resolver := newSQLiteResolver(t)

	migrate := migration.NewMigrationTasklet(resolver, migration.NewMigratorProvider(), series.Migrations, "mirror", "")
	exit, err := migrate.Execute(ctx, &model.StepExecution{})
	require.NoError(t, err)
	require.Equal(t, model.ExitStatusCompleted, exit)

	mirror := series.NewMirror(resolver, "mirror")
	require.True(t, mirror.Enabled())

	_, err = mirror.Sync(ctx, sample())
	require.NoError(t, err)

	corrected := sample()
	corrected[0].Entering = 1234
	_, err = mirror.Sync(ctx, corrected)
	require.NoError(t, err)

	conn, err := resolver.ResolveDBConnection(ctx, "mirror")
	require.NoError(t, err)
	n, err := conn.Count(ctx, &series.MirrorRow{}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, len(sample()), n)

	var rows []series.MirrorRow
	require.NoError(t, conn.ExecuteQuery(ctx, &rows, map[string]interface{}{"venue": string(corrected[0].Venue), "hour": corrected[0].Hour}))
	require.Len(t, rows, 1)
	assert.Equal(t, 1234.0, rows[0].Entering)
	assert.True(t, corrected[0].DateTime.Equal(rows[0].DateTime))
}

func TestMirror_DisabledIsNoOp(t *testing.T) {
	n, err := series.NewMirror(nil, "").Sync(context.Background(), sample())
	require.NoError(t, err)
	assert.Zero(t, n)

	var m *series.Mirror
	assert.False(t, m.Enabled())
}

type staticResolver struct {
	conn database.DBConnection
	err  error
}

func (r staticResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.conn, r.err
}

func (r staticResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.conn, r.err
}

func TestMirror_UpsertFailureRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(gdb, dbconfig.DatabaseConfig{Type: "mysql", Database: "ft"}, "mirror")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `hourly_foot_traffic`").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err = series.NewMirror(staticResolver{conn: conn}, "mirror").Sync(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirror_ResolveFailure(t *testing.T) {
	_, err := series.NewMirror(staticResolver{err: errors.New("no route")}, "mirror").Sync(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve mirror connection")
}
