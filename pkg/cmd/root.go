package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dskarbrevik/devhand/pkg/project"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

var currentWorkspace *project.Workspace

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main dh CLI application. It registers the
// provided commands, installs the global --dir flag, and detects the
// workspace (frontend/backend repos, optional devhand.yaml overrides) before
// any command runs.
//
// Global Flags:
//   - --dir, -d: Workspace directory (defaults to current directory)
//
// The application exits 0 on success and 1 when a command returns an error.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "dh",
		Usage: "CLI tool to improve devX for webapps",
		Description: `dh scaffolds, configures, and validates a two-repo web project (a Next.js
frontend and a Python backend) wired to a hosted platform for authentication
and a Postgres database.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the workspace directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// Change to workspace directory first
			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, err
			}

			pwd, err := os.Getwd()
			if err != nil {
				return ctx, errors.Wrap(err, "failed to get current working directory")
			}

			ws, err := detectWorkspace(pwd)
			if err != nil {
				return ctx, err
			}

			currentWorkspace = ws
			return ctx, nil
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}
