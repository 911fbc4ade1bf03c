package supabase

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// DirectExecutor executes statements over a direct Postgres connection using
// the database password. The management API is the preferred path; this one
// exists for statement kinds it rejects.
type DirectExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

// NewDirectExecutor opens a connection pool against the project's Postgres
// endpoint. The connection is not validated here; the first statement will
// surface any credential problem.
func NewDirectExecutor(projectRef, password string) (*DirectExecutor, error) {
	if projectRef == "" {
		return nil, errors.New("project ref is required for a direct connection")
	}

	dsn := fmt.Sprintf(
		"postgres://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), projectRef,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open direct connection")
	}

	// The runner is strictly sequential; one connection is all it gets.
	db.SetMaxOpenConns(1)

	return &DirectExecutor{db: db, timeout: defaultTimeout}, nil
}

// ExecStatement runs a single statement, bounded by the per-call timeout.
func (e *DirectExecutor) ExecStatement(ctx context.Context, stmt string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return &Error{Kind: KindDuplicate, Message: pqErr.Message}
			case "42P01": // undefined_table
				return &Error{Kind: KindNotFound, Message: pqErr.Message}
			}
			return &Error{Kind: KindQuery, Message: pqErr.Message}
		}

		return errors.Wrap(err, "failed to execute statement")
	}

	return nil
}

// Close releases the underlying connection pool.
func (e *DirectExecutor) Close() error {
	return e.db.Close()
}
