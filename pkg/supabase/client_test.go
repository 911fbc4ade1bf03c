package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/dskarbrevik/devhand/pkg/supabase"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("extracts project ref from URL", func(t *testing.T) {
		client, err := NewClient("https://abcd1234.supabase.co", ClientOptions{})
		require.NoError(t, err)
		require.Equal(t, "abcd1234", client.ProjectRef())
	})

	t.Run("explicit ref wins", func(t *testing.T) {
		client, err := NewClient("http://localhost:54321", ClientOptions{ProjectRef: "local"})
		require.NoError(t, err)
		require.Equal(t, "local", client.ProjectRef())
	})

	t.Run("requires a URL", func(t *testing.T) {
		_, err := NewClient("", ClientOptions{})
		require.Error(t, err)
	})
}

func TestTestConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/v1/admin/users", r.URL.Path)
			require.Equal(t, "secret", r.Header.Get("apikey"))
			require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)
		require.NoError(t, client.TestConnection(context.Background()))
	})

	t.Run("bad credentials classify as auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "invalid JWT"})
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "public-key-oops", ProjectRef: "test"})
		require.NoError(t, err)

		err = client.TestConnection(context.Background())
		require.Error(t, err)

		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, KindAuth, perr.Kind)
		require.Contains(t, perr.Message, "invalid JWT")
	})
}

func TestGetUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]string{
				{"id": "user-1", "email": "a@example.com"},
				{"id": "user-2", "email": "b@example.com"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		user, err := client.GetUserByEmail(context.Background(), "B@example.com")
		require.NoError(t, err)
		require.Equal(t, "user-2", user.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetUserByEmail(context.Background(), "missing@example.com")
		require.True(t, IsNotFound(err))
	})
}

func TestInsertAllowedUser(t *testing.T) {
	t.Run("duplicate rows classify as duplicate", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/rest/v1/allowed_users", r.URL.Path)
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "23505",
				"message": "duplicate key value violates unique constraint",
			})
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)

		err = client.InsertAllowedUser(context.Background(), "user-1")
		require.True(t, IsDuplicate(err))
	})

	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var row map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
			require.Equal(t, "user-1", row["user_id"])
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)
		require.NoError(t, client.InsertAllowedUser(context.Background(), "user-1"))
	})
}

func TestSyncAllowedUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/admin/users":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]string{
					{"id": "user-1", "email": "known@example.com"},
					{"id": "user-2", "email": "dup@example.com"},
				},
			})
		case "/rest/v1/allowed_users":
			var row map[string]string
			_ = json.NewDecoder(r.Body).Decode(&row)
			if row["user_id"] == "user-2" {
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"code": "23505", "message": "duplicate key"})
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
	require.NoError(t, err)

	var events []string
	stats, err := client.SyncAllowedUsers(context.Background(),
		[]string{"known@example.com", "dup@example.com", "missing@example.com", "", "# comment"},
		func(email string, outcome SyncOutcome, _ error) {
			events = append(events, email+":"+string(outcome))
		})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.NotFound)
	require.Equal(t, []string{
		"known@example.com:added",
		"dup@example.com:skipped",
		"missing@example.com:not_found",
	}, events)
}

func TestExecStatement(t *testing.T) {
	t.Run("without access token the path is unsupported", func(t *testing.T) {
		client, err := NewClient("https://abcd1234.supabase.co", ClientOptions{SecretKey: "secret"})
		require.NoError(t, err)

		err = client.ExecStatement(context.Background(), "SELECT 1")
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.True(t, perr.Unsupported())
	})

	t.Run("posts to the management API", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/projects/test/database/query", r.URL.Path)
			require.Equal(t, "Bearer token", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "CREATE TABLE t (id int)", body["query"])
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := NewClient("https://example.supabase.co", ClientOptions{
			SecretKey:     "secret",
			AccessToken:   "token",
			ProjectRef:    "test",
			ManagementURL: srv.URL,
		})
		require.NoError(t, err)
		require.NoError(t, client.ExecStatement(context.Background(), "CREATE TABLE t (id int)"))
	})

	t.Run("endpoint rejection classifies as unsupported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client, err := NewClient("https://example.supabase.co", ClientOptions{
			SecretKey:     "secret",
			AccessToken:   "token",
			ProjectRef:    "test",
			ManagementURL: srv.URL,
		})
		require.NoError(t, err)

		err = client.ExecStatement(context.Background(), "CREATE TABLE t (id int)")
		var perr *Error
		require.ErrorAs(t, err, &perr)
		require.True(t, perr.Unsupported())
	})
}

func TestLedger(t *testing.T) {
	t.Run("lists applied versions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/rest/v1/schema_migrations", r.URL.Path)
			require.Equal(t, "version", r.URL.Query().Get("select"))
			_ = json.NewEncoder(w).Encode([]map[string]string{
				{"version": "001_init"},
				{"version": "002_add_users"},
			})
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)

		versions, err := NewLedger(client).AppliedVersions(context.Background())
		require.NoError(t, err)
		require.Len(t, versions, 2)
		require.Contains(t, versions, "001_init")
		require.Contains(t, versions, "002_add_users")
	})

	t.Run("missing table errors so the runner can fail soft", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)

		_, err = NewLedger(client).AppliedVersions(context.Background())
		require.Error(t, err)
	})

	t.Run("recording a duplicate version is fine", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "23505", "message": "duplicate key"})
		}))
		defer srv.Close()

		client, err := NewClient(srv.URL, ClientOptions{SecretKey: "secret", ProjectRef: "test"})
		require.NoError(t, err)
		require.NoError(t, NewLedger(client).RecordApplied(context.Background(), "001_init"))
	})
}
