package mail

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/engine/step/retry"
)

// SourceParams defines the dependencies of NewSource.
type SourceParams struct {
	fx.In
	AppCtx      context.Context `name:"appCtx"`
	AppConfig   *appConfig.AppConfig
	BatchConfig *coreConfig.BatchConfig
	Storage     storage.StorageConnectionResolver
}

// NewSource builds the configured Source.
func NewSource(p SourceParams) (Source, error) {
	mc := p.AppConfig.Foottraffic.Mail
	switch mc.Source {
	case "directory":
		conn, err := p.Storage.ResolveStorageConnection(p.AppCtx, mc.Storage)
		if err != nil {
			return nil, err
		}
		loc, err := p.AppConfig.Foottraffic.Pipeline.Location()
		if err != nil {
			return nil, err
		}
		return NewDirectorySource(conn, mc.Prefix, loc), nil
	case "gmail", "":
		policy := retry.NewDefaultRetryPolicyFactory().Create(p.BatchConfig.Retry)
		return NewGmailSource(p.AppCtx, mc, policy)
	default:
		return nil, fmt.Errorf("unsupported mail source: %s", mc.Source)
	}
}

// Module provides the Source.
var Module = fx.Options(
	fx.Provide(NewSource),
)
