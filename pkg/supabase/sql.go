package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// LedgerBootstrapSQL creates the applied-migrations ledger. It is applied
// through the normal execution paths before a migration run so first runs
// have somewhere to record versions.
const LedgerBootstrapSQL = `create table if not exists public.schema_migrations (
	version text primary key,
	applied_at timestamptz not null default now()
)`

// ExecStatement runs a single SQL statement through the management API's
// query endpoint. This is the primary execution path for migrations.
//
// Without an access token the management API cannot be reached, so the
// statement is reported as unsupported; the runner will use the direct
// Postgres path instead when one is configured.
func (c *Client) ExecStatement(ctx context.Context, sql string) error {
	if c.accessToken == "" {
		return &Error{Kind: KindUnsupported, Message: "no access token configured for the management API"}
	}

	if c.projectRef == "" {
		return &Error{Kind: KindUnsupported, Message: "project ref unknown; cannot address the management API"}
	}

	body, err := json.Marshal(map[string]string{"query": sql})
	if err != nil {
		return errors.Wrap(err, "failed to encode query")
	}

	url := c.managementURL + "/v1/projects/" + c.projectRef + "/database/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	return c.expectSuccess(req)
}

// Ledger tracks applied migration versions in the schema_migrations table,
// read and written through PostgREST. It satisfies migrate.Ledger.
type Ledger struct {
	client *Client
	table  string
}

// NewLedger creates a ledger over the default schema_migrations table.
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client, table: "schema_migrations"}
}

// AppliedVersions returns the set of recorded versions. Callers treat an
// error here as an empty set; the table does not exist until the first
// successful run bootstraps it.
func (l *Ledger) AppliedVersions(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.client.projectURL+"/rest/v1/"+l.table+"?select=version", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	l.client.authorize(req)

	resp, err := l.client.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var rows []struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "failed to decode applied versions")
	}

	versions := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		versions[row.Version] = struct{}{}
	}

	return versions, nil
}

// RecordApplied appends a version to the ledger. Recording the same version
// twice is not an error; the ledger is a set.
func (l *Ledger) RecordApplied(ctx context.Context, version string) error {
	body, err := json.Marshal(map[string]string{"version": version})
	if err != nil {
		return errors.Wrap(err, "failed to encode version")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.client.projectURL+"/rest/v1/"+l.table, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	l.client.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	if err := l.client.expectSuccess(req); err != nil {
		if IsDuplicate(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to record version %s", version)
	}

	return nil
}
