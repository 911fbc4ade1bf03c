// Package toolchain wraps the external developer tools dh shells out to
// (node, npm, uv, docker).
package toolchain

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// CommandExists reports whether name resolves on PATH.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes a command in dir, streaming its output through to the parent
// process. An empty dir runs in the current directory.
func Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed", name)
	}

	return nil
}

// Output runs a command and returns its trimmed stdout.
func Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s failed", name)
	}

	return strings.TrimSpace(string(out)), nil
}

// ToolVersion returns the version string a tool reports via the given flag.
// Returns "installed" when the tool exists but the version probe fails, and
// "" when the tool is missing entirely.
func ToolVersion(ctx context.Context, name, flag string) string {
	if !CommandExists(name) {
		return ""
	}

	out, err := Output(ctx, "", name, flag)
	if err != nil {
		return "installed"
	}

	return out
}
