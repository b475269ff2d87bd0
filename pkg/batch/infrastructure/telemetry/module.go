package telemetry

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// NewProviders sets up telemetry from cfg and shuts it down when the application stops.
func NewProviders(lc fx.Lifecycle, cfg *config.Config) (*Providers, error) {
	p, err := Setup(context.Background(), cfg.Foottraffic.Telemetry)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := p.Shutdown(ctx); err != nil {
				logger.Warnf("Telemetry: shutdown failed: %v", err)
			}
			return nil
		},
	})
	return p, nil
}

// Module provides *Providers.
var Module = fx.Options(
	fx.Provide(NewProviders),
)
