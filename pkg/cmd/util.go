package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dskarbrevik/devhand/pkg/config"
	"github.com/dskarbrevik/devhand/pkg/project"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// detectWorkspace runs repo detection on root and applies devhand.yaml
// overrides when the file exists.
func detectWorkspace(root string) (*project.Workspace, error) {
	ws, err := project.Detect(root)
	if err != nil {
		return nil, err
	}

	wf, err := config.LoadWorkspaceFilePath(filepath.Join(root, "devhand.yaml"))
	if err != nil {
		return nil, err
	}

	if wf != nil {
		if wf.Frontend != "" {
			ws.Frontend = filepath.Join(root, wf.Frontend)
		}
		if wf.Backend != "" {
			ws.Backend = filepath.Join(root, wf.Backend)
		}
		if wf.Migrations != "" {
			ws.MigrationsPath = filepath.Join(root, wf.Migrations)
		}
	}

	return ws, nil
}

func requireWorkspace(ws *project.Workspace) error {
	if ws == nil {
		return errors.New("no workspace detected")
	}

	if !ws.HasFrontend() && !ws.HasBackend() {
		return errors.New("no projects detected in workspace (expected FE: package.json + next.config.ts, BE: pyproject.toml + main.py)")
	}

	return nil
}

func loadConfig(ws *project.Workspace) (*config.Config, error) {
	if err := requireWorkspace(ws); err != nil {
		return nil, err
	}

	return config.Load(ws)
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func in(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}

	return os.Stdin
}

func success(cmd *cli.Command, format string, args ...any) {
	fmt.Fprintf(out(cmd), "  ✅ "+format+"\n", args...)
}

func warn(cmd *cli.Command, format string, args ...any) {
	fmt.Fprintf(out(cmd), "  ⚠️  "+format+"\n", args...)
}

func fail(cmd *cli.Command, format string, args ...any) {
	fmt.Fprintf(out(cmd), "  ❌ "+format+"\n", args...)
}

func info(cmd *cli.Command, format string, args ...any) {
	fmt.Fprintf(out(cmd), "  ℹ️  "+format+"\n", args...)
}

func step(cmd *cli.Command, n int, msg string) {
	fmt.Fprintf(out(cmd), "\nStep %d: %s\n", n, msg)
}

// promptReader is shared across prompts so buffered input isn't lost between
// consecutive questions.
var promptReader *bufio.Reader

// promptText asks for a line of input, returning defaultValue when the user
// just presses enter.
func promptText(cmd *cli.Command, label, defaultValue string) string {
	w := out(cmd)
	if defaultValue != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}

	if promptReader == nil {
		promptReader = bufio.NewReader(in(cmd))
	}

	line, err := promptReader.ReadString('\n')
	if err != nil && line == "" {
		return defaultValue
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue
	}

	return line
}

// promptConfirm asks a yes/no question.
func promptConfirm(cmd *cli.Command, label string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	answer := promptText(cmd, fmt.Sprintf("%s (%s)", label, hint), "")
	if answer == "" {
		return def
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
