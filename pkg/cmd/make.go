package cmd

import (
	"context"
	"fmt"

	"github.com/dskarbrevik/devhand/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// makeCmd creates the make command for generating project artifacts.
func makeCmd() *cli.Command {
	return &cli.Command{
		Name:  "make",
		Usage: "Generate project artifacts",
		Commands: []*cli.Command{
			makeRequirements(),
		},
	}
}

func makeRequirements() *cli.Command {
	return &cli.Command{
		Name:  "requirements",
		Usage: "Generate requirements.txt from pyproject.toml using uv",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !toolchain.CommandExists("uv") {
				return errors.New("uv not installed. Install it with: pip install uv")
			}

			ws := currentWorkspace
			if ws == nil || !ws.HasBackend() {
				return errors.New("no backend project found")
			}

			fmt.Fprintln(out(cmd), "📦 Generating requirements.txt...")
			if err := toolchain.Run(ctx, ws.Backend, "uv",
				"export", "--no-dev", "--no-hashes", "--output-file", "requirements.txt"); err != nil {
				return err
			}

			success(cmd, "requirements.txt generated")
			return nil
		},
	}
}
