package earning

import "go.uber.org/fx"

var Module = fx.Module("earning",
	fx.Provide(
		NewService,
		NewDistributor,
	),
)
