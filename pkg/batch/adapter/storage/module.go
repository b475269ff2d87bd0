package storage

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
)

// ResolverParams defines the dependencies of the connection resolver.
type ResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// NewResolver builds the StorageConnectionResolver and closes all connections when the app stops.
func NewResolver(p ResolverParams) StorageConnectionResolver {
	r := NewConnectionResolver(p.Providers, p.Config)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return r.CloseAll() },
	})
	return r
}

// Module provides the StorageConnectionResolver. Providers are contributed by the local and gcs modules.
var Module = fx.Options(
	fx.Provide(NewResolver),
)
