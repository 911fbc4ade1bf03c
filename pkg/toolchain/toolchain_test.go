package toolchain_test

import (
	"context"
	"testing"

	"github.com/dskarbrevik/devhand/pkg/toolchain"
	"github.com/stretchr/testify/require"
)

func TestCommandExists(t *testing.T) {
	require.True(t, toolchain.CommandExists("ls"))
	require.False(t, toolchain.CommandExists("definitely_not_a_real_tool_12345"))
}

func TestOutput(t *testing.T) {
	t.Run("returns trimmed stdout", func(t *testing.T) {
		out, err := toolchain.Output(context.Background(), "", "echo", "hello")
		require.NoError(t, err)
		require.Equal(t, "hello", out)
	})

	t.Run("failed command errors", func(t *testing.T) {
		_, err := toolchain.Output(context.Background(), "", "ls", "/definitely/not/a/path/12345")
		require.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, toolchain.Run(context.Background(), dir, "true"))
	require.Error(t, toolchain.Run(context.Background(), dir, "false"))
}

func TestToolVersion(t *testing.T) {
	t.Run("missing tool is empty", func(t *testing.T) {
		require.Empty(t, toolchain.ToolVersion(context.Background(), "definitely_not_a_real_tool_12345", "--version"))
	})

	t.Run("probe failure still reports installed", func(t *testing.T) {
		// ls exists everywhere but rejects --not-a-flag.
		require.Equal(t, "installed", toolchain.ToolVersion(context.Background(), "ls", "--not-a-flag"))
	})
}
