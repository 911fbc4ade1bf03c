// Package migrate loads versioned SQL migration files and applies the ones a
// remote ledger has not yet seen.
//
// Migration files live in a flat directory of .sql files. The filename stem is
// the version, and lexical filename ordering is the only sequencing signal.
// The runner consumes two externally supplied capabilities: an Executor that
// can run a single SQL statement, and a Ledger that can list and record
// applied versions. Both are satisfied by the supabase package in production
// and by fakes in tests.
package migrate

import (
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Migration represents a single versioned SQL migration file.
type Migration struct {
	// Version is the migration identifier, derived from the filename stem.
	// Used for ordering and for dedup against the applied-versions ledger.
	Version string

	// Statements contains the individual SQL statements from the file, split
	// on semicolons with empty and whitespace-only fragments discarded.
	Statements []string
}

// LoadDir loads all .sql files from the provided filesystem and returns them
// as migrations sorted in lexical filename order.
//
// The filesystem can be a regular directory (os.DirFS), an embedded
// filesystem, or any other fs.FS implementation. Files without a .sql
// extension are ignored.
//
// Example usage:
//
//	migrations, err := migrate.LoadDir(os.DirFS("./supabase/migrations"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, m := range migrations {
//		fmt.Printf("%s: %d statements\n", m.Version, len(m.Statements))
//	}
func LoadDir(dir fs.FS) ([]*Migration, error) {
	var migrations []*Migration

	// NB: WalkDir always walks in lexical order.
	if err := fs.WalkDir(dir, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}

		f, err := dir.Open(path)
		if err != nil {
			return errors.Wrapf(err, "failed to open: %s", path)
		}
		defer func() { _ = f.Close() }()

		filename := filepath.Base(path)
		version := filename
		if i := strings.Index(filename, "."); i >= 0 {
			version = filename[:i]
		}

		m, err := Load(version, f)
		if err != nil {
			return errors.Wrapf(err, "failed to load migration: %s", path)
		}

		migrations = append(migrations, m)
		return nil
	}); err != nil {
		return nil, err
	}

	return migrations, nil
}

// Load creates a Migration from the provided reader, splitting its content
// into individual statements.
func Load(version string, r io.Reader) (*Migration, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read migration: %s", version)
	}

	return &Migration{
		Version:    version,
		Statements: SplitStatements(string(content)),
	}, nil
}

// SplitStatements splits SQL text into individual statements on semicolons.
// Whitespace-only fragments are discarded, so trailing semicolons and blank
// lines between statements are harmless.
func SplitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	stmts := make([]string, 0, len(parts))

	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	return stmts
}
