package migrate

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
)

type (
	// Executor is the capability to run a single SQL statement against the
	// remote database.
	Executor interface {
		ExecStatement(ctx context.Context, sql string) error
	}

	// Ledger tracks which migration versions have been applied. It is treated
	// as an append-only record: versions are added on success and never
	// removed.
	Ledger interface {
		// AppliedVersions returns the set of versions already applied. An
		// error here is treated by the runner as "nothing applied yet" so
		// first runs succeed before the ledger exists.
		AppliedVersions(ctx context.Context) (map[string]struct{}, error)

		// RecordApplied adds a version to the ledger. Failures are non-fatal
		// to the batch; the runner logs them and surfaces them on the result.
		RecordApplied(ctx context.Context, version string) error
	}

	// Runner applies pending migrations in lexical order, one statement at a
	// time. Execution is strictly sequential; later migrations may depend on
	// earlier ones and the remote store offers no transaction primitive to
	// lean on.
	Runner struct {
		primary  Executor
		fallback Executor
		ledger   Ledger
		logger   *slog.Logger
	}

	// Config contains configuration options for creating a new Runner.
	Config struct {
		// Executor is the primary statement execution path.
		Executor Executor

		// Fallback is an optional secondary execution path, consulted only
		// when the primary path reports a statement kind as unsupported.
		Fallback Executor

		// Ledger records applied versions.
		Ledger Ledger

		// Logger receives operational warnings. Defaults to slog.Default().
		Logger *slog.Logger
	}

	// Result summarizes a batch run.
	Result struct {
		// Found is the total number of migration files discovered.
		Found int

		// Skipped is the number of migrations already present in the ledger.
		Skipped int

		// Applied is the number of migrations newly applied by this run.
		Applied int

		// Success indicates whether the batch completed without a statement
		// failure.
		Success bool

		// Migrations holds the per-migration outcomes, in application order.
		// Migrations after a failure never appear here; they were never
		// submitted.
		Migrations []*MigrationResult
	}

	// MigrationResult contains the outcome of a single migration.
	MigrationResult struct {
		Version           string
		Status            Status
		StatementsApplied int
		TotalStatements   int
		ExecutionTime     time.Duration

		// Err is the statement failure that aborted this migration, if any.
		Err error

		// RecordErr is set when the migration applied cleanly but recording
		// its version in the ledger failed. The migration may be reapplied on
		// a later run.
		RecordErr error
	}

	// Status represents the outcome of a single migration.
	Status string
)

const (
	// StatusSuccess indicates every statement in the migration was executed.
	StatusSuccess Status = "success"

	// StatusFailed indicates a statement failed and the batch was aborted.
	StatusFailed Status = "failed"

	// StatusSkipped indicates the version was already in the ledger.
	StatusSkipped Status = "skipped"
)

// unsupported is implemented by errors that indicate the execution path
// rejected the statement kind, as opposed to the statement itself failing.
// See supabase.Error.
type unsupported interface {
	Unsupported() bool
}

// New creates a new migration runner with the provided configuration.
//
// Example usage:
//
//	runner := migrate.New(migrate.Config{
//		Executor: client,
//		Fallback: direct,
//		Ledger:   supabase.NewLedger(client),
//	})
//
//	result, err := runner.ApplyDir(ctx, "supabase/migrations")
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		primary:  cfg.Executor,
		fallback: cfg.Fallback,
		ledger:   cfg.Ledger,
		logger:   logger,
	}
}

// ApplyDir applies all pending migrations found in the directory at path.
//
// A missing directory is a terminal error; no remote state is touched. The
// returned error wraps fs.ErrNotExist in that case, so callers can
// distinguish it with errors.Is.
func (r *Runner) ApplyDir(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "migrations directory not found: %s", path)
	}

	if !info.IsDir() {
		return nil, errors.Errorf("not a directory: %s", path)
	}

	migrations, err := LoadDir(os.DirFS(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load migrations from: %s", path)
	}

	return r.Apply(ctx, migrations), nil
}

// Apply runs the given migrations, skipping versions already in the ledger
// and preserving the order of the input slice.
//
// Migrations are applied one at a time. A statement failure aborts the entire
// batch: the failed migration's version is not recorded, and later migrations
// are never submitted. Statements that succeeded before the failure are not
// rolled back; no transactional guarantee is provided.
func (r *Runner) Apply(ctx context.Context, migrations []*Migration) *Result {
	applied, err := r.ledger.AppliedVersions(ctx)
	if err != nil {
		// A missing ledger means nothing has been applied yet. First-run
		// bootstrapping must succeed.
		r.logger.Warn("could not load applied versions, assuming none applied", "error", err)
		applied = map[string]struct{}{}
	}

	result := &Result{
		Found:   len(migrations),
		Success: true,
	}

	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			result.Skipped++
			result.Migrations = append(result.Migrations, &MigrationResult{
				Version:         m.Version,
				Status:          StatusSkipped,
				TotalStatements: len(m.Statements),
			})
			continue
		}

		mr := r.applyMigration(ctx, m)
		result.Migrations = append(result.Migrations, mr)

		// Stop execution on first failure.
		if mr.Status == StatusFailed {
			result.Success = false
			break
		}

		result.Applied++
	}

	return result
}

func (r *Runner) applyMigration(ctx context.Context, m *Migration) *MigrationResult {
	mr := &MigrationResult{
		Version:         m.Version,
		Status:          StatusSuccess,
		TotalStatements: len(m.Statements),
	}

	start := time.Now()
	for _, stmt := range m.Statements {
		if err := r.execStatement(ctx, stmt); err != nil {
			mr.Status = StatusFailed
			mr.Err = errors.Wrapf(err, "statement %d of %s failed", mr.StatementsApplied+1, m.Version)
			mr.ExecutionTime = time.Since(start)
			return mr
		}

		mr.StatementsApplied++
	}
	mr.ExecutionTime = time.Since(start)

	if err := r.ledger.RecordApplied(ctx, m.Version); err != nil {
		// Applied but unrecorded: the migration may be reapplied or need
		// manual reconciliation on a later run.
		mr.RecordErr = err
		r.logger.Warn("failed to record applied migration", "version", m.Version, "error", err)
	}

	return mr
}

// execStatement submits a statement to the primary path and, when that path
// reports the statement kind as unsupported, to the fallback path. Both paths
// are tried at most once; there is no delay and no repeated retry.
func (r *Runner) execStatement(ctx context.Context, stmt string) error {
	err := r.primary.ExecStatement(ctx, stmt)
	if err == nil || r.fallback == nil || !isUnsupported(err) {
		return err
	}

	r.logger.Debug("primary execution path rejected statement, trying fallback", "error", err)
	return r.fallback.ExecStatement(ctx, stmt)
}

func isUnsupported(err error) bool {
	var u unsupported
	return errors.As(err, &u) && u.Unsupported()
}
