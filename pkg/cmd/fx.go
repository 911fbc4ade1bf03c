package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(db, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(install, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(makeCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(setup, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(validate, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
