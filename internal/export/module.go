package export

import (
	"context"

	"go.uber.org/fx"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
)

// ExporterParams defines the dependencies of NewExporterFromConfig.
type ExporterParams struct {
	fx.In
	AppCtx    context.Context `name:"appCtx"`
	AppConfig *appConfig.AppConfig
	Storage   storage.StorageConnectionResolver
}

// NewExporterFromConfig resolves the export storage connection.
func NewExporterFromConfig(p ExporterParams) (*Exporter, error) {
	ec := p.AppConfig.Foottraffic.Export
	conn, err := p.Storage.ResolveStorageConnection(p.AppCtx, ec.Storage)
	if err != nil {
		return nil, err
	}
	return NewExporter(conn, ec.Object, ec.Indent), nil
}

// Module provides the Exporter.
var Module = fx.Options(
	fx.Provide(NewExporterFromConfig),
)
