package main

import (
	"context"
	"os"

	"github.com/dskarbrevik/devhand/pkg/cmd"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	fx.New(
		fx.NopLogger,
		fx.Provide(
			func() []string { return os.Args },
			func() context.Context { return context.Background() },
			func() *cmd.Version {
				return &cmd.Version{Version: version, Commit: commit, Timestamp: date}
			},
		),
		cmd.Module,
	).Run()
}
