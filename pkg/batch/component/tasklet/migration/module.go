// Package migration provides the schema migration tasklet and its golang-migrate based Migrator.
package migration

import "go.uber.org/fx"

// Module provides the MigratorProvider.
var Module = fx.Options(
	fx.Provide(NewMigratorProvider),
)
