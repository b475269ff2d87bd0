package sqlite

import (
	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
)

// Module contributes the provider to the DBProvider group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
		),
	),
)
