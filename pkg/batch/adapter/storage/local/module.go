package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
)

// Module contributes the LocalProvider to the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
