package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// NewGormLogger creates a gorm logger writing through the batch logger at the given level.
func NewGormLogger(level string) gormLogger.Interface {
	var gormLevel gormLogger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gormLogger.Error
	case config.LogLevelWarn:
		gormLevel = gormLogger.Warn
	case config.LogLevelInfo, config.LogLevelDebug, config.LogLevelTrace:
		gormLevel = gormLogger.Info
	default:
		gormLevel = gormLogger.Silent
	}

	return gormLogger.New(
		&GormWriter{},
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm output to the batch logger. SQL traces go to DEBUG, everything else to INFO.
type GormWriter struct{}

// Printf implements gormLogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}

// gormExecutor implements database.DBExecutor on a *gorm.DB, which may be a transaction.
type gormExecutor struct {
	db *gorm.DB
}

func (e *gormExecutor) session(ctx context.Context, tableName string) *gorm.DB {
	db := e.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	if tableName != "" {
		db = db.Table(tableName)
	}
	return db
}

// ExecuteUpsert implements database.DBExecutor.
func (e *gormExecutor) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}

	onConflict := clause.OnConflict{Columns: columns}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	result := e.session(ctx, tableName).Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteQuery implements database.DBExecutor.
func (e *gormExecutor) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return e.ExecuteQueryAdvanced(ctx, target, query, "", 0)
}

// ExecuteQueryAdvanced implements database.DBExecutor.
func (e *gormExecutor) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	db := e.session(ctx, "")
	if len(query) > 0 {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

// Count implements database.DBExecutor.
func (e *gormExecutor) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	var count int64
	db := e.session(ctx, "").Model(model)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	gormExecutor
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

var _ database.DBConnection = (*GormDBAdapter)(nil)

// NewGormDBAdapter creates a new GormDBAdapter.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	return &GormDBAdapter{
		gormExecutor: gormExecutor{db: db},
		sqlDB:        sqlDB,
		cfg:          cfg,
		name:         name,
	}, nil
}

// GetGormDB returns the underlying *gorm.DB.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

// Close implements coreAdapter.ResourceConnection.
func (a *GormDBAdapter) Close() error {
	logger.Debugf("Closing DB connection '%s'.", a.name)
	return a.sqlDB.Close()
}

// Type implements coreAdapter.ResourceConnection.
func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

// Name implements coreAdapter.ResourceConnection.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.sqlDB, nil
}

// Transaction implements database.DBConnection.
func (a *GormDBAdapter) Transaction(ctx context.Context, fn func(tx database.DBExecutor) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormExecutor{db: tx})
	})
}

// IsTableNotExistError implements database.DBConnection.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch a.cfg.Type {
	case "postgres":
		return strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation")
	case "mysql":
		return strings.Contains(msg, "error 1146") || strings.Contains(msg, "doesn't exist")
	case "sqlite":
		return strings.Contains(msg, "no such table")
	default:
		return false
	}
}
