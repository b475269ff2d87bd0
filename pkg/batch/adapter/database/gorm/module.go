package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
)

func newResolver(lc fx.Lifecycle, p ResolverParams) database.DBConnectionResolver {
	r := NewGormDBConnectionResolver(p)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return r.CloseAll() },
	})
	return r
}

// Module provides the DBConnectionResolver. Concrete providers come from the sqlite, postgres and mysql modules.
var Module = fx.Options(
	fx.Provide(newResolver),
)
