package series

import (
	"context"

	"go.uber.org/fx"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
)

// StoreParams defines the dependencies of NewStore.
type StoreParams struct {
	fx.In
	AppCtx    context.Context `name:"appCtx"`
	AppConfig *appConfig.AppConfig
	Storage   storage.StorageConnectionResolver
}

// NewStore resolves the configured storage connection and returns a ParquetStore on it.
func NewStore(p StoreParams) (Store, error) {
	sc := p.AppConfig.Foottraffic.Series
	conn, err := p.Storage.ResolveStorageConnection(p.AppCtx, sc.Storage)
	if err != nil {
		return nil, err
	}
	return NewParquetStore(conn, sc.Object, sc.Compression)
}

// NewMirrorFromConfig returns the Mirror for series.mirror, disabled when it is empty.
func NewMirrorFromConfig(cfg *appConfig.AppConfig, resolver database.DBConnectionResolver) *Mirror {
	return NewMirror(resolver, cfg.Foottraffic.Series.Mirror)
}

// Module provides the Store and the Mirror.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(NewMirrorFromConfig),
)
