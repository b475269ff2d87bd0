package series

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// TableName is the mirror table.
const TableName = "hourly_foot_traffic"

// DefaultMirrorBatchSize is the number of rows per upsert statement.
const DefaultMirrorBatchSize = 500

//go:embed migrations
var migrationFiles embed.FS

// Migrations holds the mirror schema, one directory per database type.
var Migrations fs.FS = mustSub(migrationFiles, "migrations")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

var (
	conflictColumns = []string{"venue", "date_time"}
	updateColumns   = []string{"date", "hour", "entering", "inside", "is_open"}
)

// MirrorRow is one row of the mirror table.
type MirrorRow struct {
	Venue    string    `gorm:"column:venue;primaryKey"`
	DateTime time.Time `gorm:"column:date_time;primaryKey"`
	Date     time.Time `gorm:"column:date"`
	Hour     int       `gorm:"column:hour"`
	Entering float64   `gorm:"column:entering"`
	Inside   float64   `gorm:"column:inside"`
	IsOpen   bool      `gorm:"column:is_open"`
}

// TableName implements gorm's Tabler.
func (MirrorRow) TableName() string { return TableName }

func toMirrorRow(r model.CanonicalRecord) MirrorRow {
	return MirrorRow{
		Venue:    string(r.Venue),
		DateTime: r.DateTime.UTC(),
		Date:     r.Date.UTC(),
		Hour:     r.Hour,
		Entering: r.Entering,
		Inside:   r.Inside,
		IsOpen:   r.IsOpen,
	}
}

// Mirror upserts the series into a SQL table keyed by (venue, date_time).
// A Mirror with no connection name is disabled.
type Mirror struct {
	resolver  database.DBConnectionResolver
	connName  string
	batchSize int
}

// NewMirror creates a Mirror writing through the named connection.
func NewMirror(resolver database.DBConnectionResolver, connName string) *Mirror {
	return &Mirror{resolver: resolver, connName: connName, batchSize: DefaultMirrorBatchSize}
}

// Enabled reports whether a connection is configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.connName != ""
}

// Sync upserts every record in one transaction and returns the affected row count reported by the driver.
func (m *Mirror) Sync(ctx context.Context, s model.Series) (int64, error) {
	if !m.Enabled() {
		return 0, nil
	}
	conn, err := m.resolver.ResolveDBConnection(ctx, m.connName)
	if err != nil {
		return 0, exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve mirror connection '%s'", m.connName), err, false, true)
	}

	var affected int64
	err = conn.Transaction(ctx, func(tx database.DBExecutor) error {
		for start := 0; start < len(s); start += m.batchSize {
			end := start + m.batchSize
			if end > len(s) {
				end = len(s)
			}
			rows := make([]MirrorRow, 0, end-start)
			for _, r := range s[start:end] {
				rows = append(rows, toMirrorRow(r))
			}
			n, err := tx.ExecuteUpsert(ctx, &rows, TableName, conflictColumns, updateColumns)
			if err != nil {
				return fmt.Errorf("upsert of rows %d-%d failed: %w", start, end-1, err)
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return 0, exception.NewBatchError(moduleName, fmt.Sprintf("failed to mirror series to '%s'", m.connName), err, false, false)
	}
	logger.Infof("Mirror: upserted %d records into '%s' on '%s' (%d rows affected).", len(s), TableName, m.connName, affected)
	return affected, nil
}
