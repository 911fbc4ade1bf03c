package config_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/dskarbrevik/devhand/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	input := `# frontend credentials
NEXT_PUBLIC_SUPABASE_URL=https://abcd1234.supabase.co
NEXT_PUBLIC_SUPABASE_KEY="sb_publishable_xyz"

CUSTOM_FLAG='on'
not a key value line
`

	f, err := ParseEnv(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, "https://abcd1234.supabase.co", f.Get("NEXT_PUBLIC_SUPABASE_URL"))
	require.Equal(t, "sb_publishable_xyz", f.Get("NEXT_PUBLIC_SUPABASE_KEY"))
	require.Equal(t, "on", f.Get("CUSTOM_FLAG"))
	require.Equal(t, "", f.Get("MISSING"))
	require.Equal(t, []string{"NEXT_PUBLIC_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_KEY", "CUSTOM_FLAG"}, f.Keys())
}

func TestEnvFileWrite(t *testing.T) {
	t.Run("preserves key order on rewrite", func(t *testing.T) {
		f, err := ParseEnv(strings.NewReader("B=2\nA=1\n"))
		require.NoError(t, err)

		f.Set("B", "20")
		f.Set("C", "3")

		var buf bytes.Buffer
		_, err = f.WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, "B=20\nA=1\nC=3\n", buf.String())
	})

	t.Run("empty file writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := NewEnvFile().WriteTo(&buf)
		require.NoError(t, err)
		require.Empty(t, buf.String())
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is empty", func(t *testing.T) {
		f, err := LoadEnvFile(t.TempDir() + "/.env")
		require.NoError(t, err)
		require.Empty(t, f.Keys())
	})
}
