package cmd

import (
	"context"
	"fmt"

	"github.com/dskarbrevik/devhand/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// install creates the install command for installing project dependencies in
// both repos.
func install() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Install project dependencies",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireWorkspace(currentWorkspace); err != nil {
				return err
			}

			return installDependencies(ctx, cmd, true)
		},
	}
}

// installDependencies runs the package managers for whichever repos exist.
// When fatal is false (setup), a failed install is reported and the flow
// continues; setup shouldn't abort on a flaky registry.
func installDependencies(ctx context.Context, cmd *cli.Command, fatal bool) error {
	ws := currentWorkspace

	if ws.HasFrontend() {
		fmt.Fprintln(out(cmd), "\n📦 Installing frontend dependencies...")
		if err := toolchain.Run(ctx, ws.Frontend, "npm", "install"); err != nil {
			fail(cmd, "Failed to install frontend dependencies: %v", err)
			if fatal {
				return errors.Wrap(err, "frontend install failed")
			}
		} else {
			success(cmd, "Frontend dependencies installed")
		}
	}

	if ws.HasBackend() {
		fmt.Fprintln(out(cmd), "\n📦 Installing backend dependencies...")
		if err := toolchain.Run(ctx, ws.Backend, "uv", "sync", "--dev"); err != nil {
			fail(cmd, "Failed to install backend dependencies: %v", err)
			if fatal {
				return errors.Wrap(err, "backend install failed")
			}
		} else {
			success(cmd, "Backend dependencies installed")
		}
	}

	return nil
}
