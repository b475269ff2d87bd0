// Package mysql provides a GORM DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
)

const dbType = "mysql"

func init() {
	gormadapter.RegisterDialector(dbType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the go-sql-driver DSN. parseTime is required for DATETIME columns,
// multiStatements for the migration files.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		c.User, c.Password, c.Host, port, c.Database)
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates a new database.DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, dbType)}
}
