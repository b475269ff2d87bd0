package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
)

// Module contributes the GCSProvider to the "storage_providers" group.
// Clients are created lazily, so the module is harmless when no gcs connection is configured.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
