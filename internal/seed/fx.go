package seed

import "go.uber.org/fx"

var Module = fx.Module("seed",
	fx.Provide(NewService),
	fx.Invoke(Bootstrap),
)
