package migrate_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dskarbrevik/devhand/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	t.Run("lexical order", func(t *testing.T) {
		fsys := fstest.MapFS{
			"002_add_users.sql": &fstest.MapFile{Data: []byte("CREATE TABLE users (id uuid);")},
			"001_init.sql":      &fstest.MapFile{Data: []byte("CREATE SCHEMA app;")},
			"010_later.sql":     &fstest.MapFile{Data: []byte("ALTER TABLE users ADD COLUMN email text;")},
		}

		migrations, err := migrate.LoadDir(fsys)
		require.NoError(t, err)
		require.Len(t, migrations, 3)
		require.Equal(t, "001_init", migrations[0].Version)
		require.Equal(t, "002_add_users", migrations[1].Version)
		require.Equal(t, "010_later", migrations[2].Version)
	})

	t.Run("ignores non-sql files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001_init.sql": &fstest.MapFile{Data: []byte("CREATE SCHEMA app;")},
			"README.md":    &fstest.MapFile{Data: []byte("docs")},
			".env":         &fstest.MapFile{Data: []byte("KEY=value")},
		}

		migrations, err := migrate.LoadDir(fsys)
		require.NoError(t, err)
		require.Len(t, migrations, 1)
		require.Equal(t, "001_init", migrations[0].Version)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := migrate.LoadDir(fstest.MapFS{})
		require.NoError(t, err)
		require.Empty(t, migrations)
	})
}

func TestLoad(t *testing.T) {
	m, err := migrate.Load("001_init", strings.NewReader("CREATE SCHEMA app;\nCREATE TABLE app.users (id uuid);\n"))
	require.NoError(t, err)
	require.Equal(t, "001_init", m.Version)
	require.Equal(t, []string{
		"CREATE SCHEMA app",
		"CREATE TABLE app.users (id uuid)",
	}, m.Statements)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "single statement",
			sql:  "CREATE TABLE t (id int);",
			want: []string{"CREATE TABLE t (id int)"},
		},
		{
			name: "multiple statements",
			sql:  "CREATE TABLE a (id int);\nCREATE TABLE b (id int);",
			want: []string{"CREATE TABLE a (id int)", "CREATE TABLE b (id int)"},
		},
		{
			name: "discards whitespace fragments",
			sql:  "CREATE TABLE a (id int);\n\n;;\n  ;\n",
			want: []string{"CREATE TABLE a (id int)"},
		},
		{
			name: "no trailing semicolon",
			sql:  "CREATE TABLE a (id int)",
			want: []string{"CREATE TABLE a (id int)"},
		},
		{
			name: "empty input",
			sql:  "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, migrate.SplitStatements(tt.sql))
		})
	}
}
