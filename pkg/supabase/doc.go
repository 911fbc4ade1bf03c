// Package supabase provides a thin client for the hosted platform dh wires
// projects to: the auth admin API for user lookups, PostgREST for row
// operations, and the management API for executing raw SQL.
//
// The client exposes the two capabilities the migration runner consumes: an
// ExecStatement method backed by the management API (the primary execution
// path) and a Ledger over the schema_migrations table. DirectExecutor offers
// a secondary execution path over a direct Postgres connection for statement
// kinds the management API rejects.
//
// All errors returned by this package carry a structured Kind so callers can
// branch on failure class without matching on response text.
package supabase
