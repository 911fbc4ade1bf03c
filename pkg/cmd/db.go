package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dskarbrevik/devhand/pkg/config"
	"github.com/dskarbrevik/devhand/pkg/migrate"
	"github.com/dskarbrevik/devhand/pkg/supabase"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// db creates the db command group for operations against the hosted platform.
func db() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database operations against the hosted platform",
		Commands: []*cli.Command{
			dbMigrate(),
			dbStatus(),
			dbSyncUsers(),
		},
	}
}

// dbMigrate creates the migrate command for applying pending migrations.
//
// Migrations are flat .sql files applied in lexical filename order. Versions
// already present in the schema_migrations ledger are skipped; a statement
// failure aborts the batch without recording the failed file.
func dbMigrate() *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"apply"},
		Usage:   "Apply pending SQL migrations",
		Description: `Apply all pending migrations to the configured project.

Each migration file is split into statements and executed sequentially.
Statements run through the management API; when it rejects a statement kind
and a database password is configured, the statement is retried once over a
direct Postgres connection. On success the file's version is recorded in the
schema_migrations ledger so later runs skip it.

There is no rollback: statements that succeeded before a failure stay
applied.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "migrations-dir",
				Aliases:     []string{"m"},
				Usage:       "the migrations directory",
				DefaultText: "<frontend>/supabase/migrations",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: runDBMigrate,
	}
}

func runDBMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(currentWorkspace)
	if err != nil {
		return err
	}

	dir := cmd.String("migrations-dir")
	if dir == "" {
		dir = currentWorkspace.MigrationsDir()
	}
	if dir == "" {
		return errors.New("no migrations directory found; pass --migrations-dir")
	}

	client, primary, fallback, cleanup, err := buildExecutors(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("Starting migration run", "dir", dir, "project", client.ProjectRef())

	ledger := supabase.NewLedger(client)
	ensureLedger(ctx, primary, fallback)

	runner := migrate.New(migrate.Config{
		Executor: primary,
		Fallback: fallback,
		Ledger:   ledger,
	})

	result, err := runner.ApplyDir(ctx, dir)
	if err != nil {
		return err
	}

	return reportMigrateResult(cmd, result)
}

// buildExecutors creates the platform client (primary execution path) and,
// when a database password is available, the direct Postgres fallback.
func buildExecutors(cfg *config.Config) (client *supabase.Client, primary migrate.Executor, fallback migrate.Executor, cleanup func(), err error) {
	if cfg.DB.URL == "" || cfg.DB.SecretKey == "" {
		return nil, nil, nil, nil, errors.New("database not configured - run 'dh setup'")
	}

	client, err = supabase.NewClient(cfg.DB.URL, supabase.ClientOptions{
		SecretKey:   cfg.DB.SecretKey,
		AccessToken: cfg.DB.AccessToken,
		ProjectRef:  cfg.DB.ProjectRef,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cleanup = func() {}
	if cfg.DB.Password != "" && client.ProjectRef() != "" {
		direct, derr := supabase.NewDirectExecutor(client.ProjectRef(), cfg.DB.Password)
		if derr != nil {
			slog.Warn("direct Postgres path unavailable", "error", derr)
		} else {
			fallback = direct
			cleanup = func() { _ = direct.Close() }
		}
	}

	return client, client, fallback, cleanup, nil
}

// ensureLedger creates the schema_migrations table when it doesn't exist yet.
// Failure is non-fatal here; the runner fails soft on a missing ledger and a
// later record attempt will surface real connectivity problems.
func ensureLedger(ctx context.Context, primary, fallback migrate.Executor) {
	err := primary.ExecStatement(ctx, supabase.LedgerBootstrapSQL)
	if err == nil {
		return
	}

	if fallback != nil {
		if ferr := fallback.ExecStatement(ctx, supabase.LedgerBootstrapSQL); ferr == nil {
			return
		}
	}

	slog.Warn("could not bootstrap migration ledger", "error", err)
}

func reportMigrateResult(cmd *cli.Command, result *migrate.Result) error {
	w := out(cmd)

	if result.Found == 0 {
		fmt.Fprintln(w, "No migration files found")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Migration results:")
	fmt.Fprintln(w)

	var lastErr error
	unrecorded := 0

	for _, mr := range result.Migrations {
		switch mr.Status {
		case migrate.StatusSuccess:
			fmt.Fprintf(w, "  ✅ %s completed in %v (%d/%d statements)\n",
				mr.Version, mr.ExecutionTime, mr.StatementsApplied, mr.TotalStatements)
			if mr.RecordErr != nil {
				unrecorded++
				fmt.Fprintf(w, "     ⚠️  applied but not recorded: %v\n", mr.RecordErr)
			}

		case migrate.StatusFailed:
			fmt.Fprintf(w, "  ❌ %s failed after %v (%d/%d statements)\n",
				mr.Version, mr.ExecutionTime, mr.StatementsApplied, mr.TotalStatements)
			if mr.Err != nil {
				fmt.Fprintf(w, "     Error: %v\n", mr.Err)
				lastErr = mr.Err
			}

		case migrate.StatusSkipped:
			fmt.Fprintf(w, "  ⏭  %s (already applied)\n", mr.Version)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d found, %d already applied, %d newly applied\n",
		result.Found, result.Skipped, result.Applied)

	if unrecorded > 0 {
		fmt.Fprintf(w, "⚠️  %d migration(s) applied but not recorded; they may be reapplied on the next run\n", unrecorded)
	}

	if !result.Success {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "❌ Migration run failed. Statements already applied were not rolled back.")
		return lastErr
	}

	if result.Applied == 0 {
		fmt.Fprintln(w, "ℹ️  All migrations are up to date.")
	}

	return nil
}

// dbStatus creates the status command for checking platform connectivity and
// pending-migration counts.
func dbStatus() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check database connectivity and migration status",
		Action: runDBStatus,
	}
}

func runDBStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(currentWorkspace)
	if err != nil {
		return err
	}

	if cfg.DB.URL == "" {
		return errors.New("database not configured - run 'dh setup'")
	}

	client, err := supabase.NewClient(cfg.DB.URL, supabase.ClientOptions{
		SecretKey:  cfg.DB.SecretKey,
		ProjectRef: cfg.DB.ProjectRef,
	})
	if err != nil {
		return err
	}

	if err := client.TestConnection(ctx); err != nil {
		fail(cmd, "Database connection failed: %v", err)
		info(cmd, "Make sure you're using the secret key (sb_secret_* or service_role JWT), not the public key")
		return errors.New("cannot connect to database")
	}
	success(cmd, "Database connection successful")

	dir := currentWorkspace.MigrationsDir()
	if dir == "" {
		return nil
	}

	migrations, err := migrate.LoadDir(os.DirFS(dir))
	if err != nil {
		// A workspace without migrations yet isn't an error for status.
		warn(cmd, "No migrations directory at %s", dir)
		return nil
	}

	applied, err := supabase.NewLedger(client).AppliedVersions(ctx)
	if err != nil {
		applied = map[string]struct{}{}
	}

	pending := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; !ok {
			pending++
		}
	}

	fmt.Fprintf(out(cmd), "\nMigrations: %d total, %d applied, %d pending\n",
		len(migrations), len(migrations)-pending, pending)

	if pending > 0 {
		fmt.Fprintln(out(cmd), "💡 Run 'dh db migrate' to apply pending migrations")
	}

	return nil
}

// dbSyncUsers creates the sync-users command for syncing allowed emails into
// the allowed_users table.
func dbSyncUsers() *cli.Command {
	return &cli.Command{
		Name:      "sync-users",
		Usage:     "Sync allowed emails into the allowed_users table",
		ArgsUsage: "[email ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "file with one email per line (# comments allowed)",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: runDBSyncUsers,
	}
}

func runDBSyncUsers(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(currentWorkspace)
	if err != nil {
		return err
	}

	if cfg.DB.URL == "" || cfg.DB.SecretKey == "" {
		return errors.New("database not configured - run 'dh setup'")
	}

	emails := cmd.Args().Slice()
	if file := cmd.String("file"); file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read email list: %s", file)
		}
		emails = append(emails, strings.Split(string(content), "\n")...)
	}

	if len(emails) == 0 {
		return errors.New("no emails given; pass emails as arguments or use --file")
	}

	client, err := supabase.NewClient(cfg.DB.URL, supabase.ClientOptions{
		SecretKey:  cfg.DB.SecretKey,
		ProjectRef: cfg.DB.ProjectRef,
	})
	if err != nil {
		return err
	}

	stats, err := client.SyncAllowedUsers(ctx, emails, func(email string, outcome supabase.SyncOutcome, serr error) {
		switch outcome {
		case supabase.SyncAdded:
			success(cmd, "Added %s to allowed_users", email)
		case supabase.SyncNotFound:
			warn(cmd, "%s not found in auth users (user needs to sign up first)", email)
		case supabase.SyncSkipped:
			if serr != nil {
				warn(cmd, "%s skipped: %v", email, serr)
			} else {
				warn(cmd, "%s already in allowed_users", email)
			}
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out(cmd), "\nSynced: %d added, %d skipped, %d not found\n",
		stats.Added, stats.Skipped, stats.NotFound)
	return nil
}
