package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type (
	// Client wraps the platform's HTTP surface. It is safe for sequential use
	// by a single caller; dh never issues concurrent requests.
	Client struct {
		projectURL    string
		projectRef    string
		secretKey     string
		accessToken   string
		managementURL string
		http          *http.Client
	}

	// ClientOptions contains configuration options for creating a new Client.
	ClientOptions struct {
		// SecretKey is the sb_secret_* key (or legacy service_role JWT) used
		// for auth admin and PostgREST requests.
		SecretKey string

		// AccessToken is the personal access token used for management API
		// requests. Optional; without it the SQL execution path reports
		// statements as unsupported.
		AccessToken string

		// ProjectRef identifies the project. Extracted from the project URL
		// when empty.
		ProjectRef string

		// ManagementURL overrides the management API base URL. Used in tests.
		ManagementURL string

		// Timeout bounds each individual request. Defaults to 30s.
		Timeout time.Duration
	}

	// User is a platform auth user.
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	// SyncOutcome describes what happened to a single email during a sync.
	SyncOutcome string

	// SyncStats summarizes a SyncAllowedUsers run.
	SyncStats struct {
		Added    int
		Skipped  int
		NotFound int
	}
)

const (
	SyncAdded    SyncOutcome = "added"
	SyncSkipped  SyncOutcome = "skipped"
	SyncNotFound SyncOutcome = "not_found"
)

const (
	defaultManagementURL = "https://api.supabase.com"
	defaultTimeout       = 30 * time.Second
)

var projectRefPattern = regexp.MustCompile(`^https://([^.]+)\.supabase\.co`)

// NewClient creates a platform client for the given project URL.
//
// Example usage:
//
//	client, err := supabase.NewClient("https://abcd1234.supabase.co", supabase.ClientOptions{
//		SecretKey:   secretKey,
//		AccessToken: accessToken,
//	})
func NewClient(projectURL string, opts ClientOptions) (*Client, error) {
	projectURL = strings.TrimRight(projectURL, "/")
	if projectURL == "" {
		return nil, errors.New("project URL is required")
	}

	ref := opts.ProjectRef
	if ref == "" {
		if m := projectRefPattern.FindStringSubmatch(projectURL); m != nil {
			ref = m[1]
		}
	}

	managementURL := opts.ManagementURL
	if managementURL == "" {
		managementURL = defaultManagementURL
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		projectURL:    projectURL,
		projectRef:    ref,
		secretKey:     opts.SecretKey,
		accessToken:   opts.AccessToken,
		managementURL: strings.TrimRight(managementURL, "/"),
		http:          &http.Client{Timeout: timeout},
	}, nil
}

// ProjectRef returns the project reference, or "" when it could not be
// derived from the project URL.
func (c *Client) ProjectRef() string {
	return c.projectRef
}

// TestConnection verifies that the secret key grants admin access by listing
// a single auth user.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.listUsers(ctx)
	return err
}

// ListUsers returns the project's auth users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return c.listUsers(ctx)
}

// GetUserByEmail finds an auth user by email. Returns a KindNotFound error
// when no user has signed up with the address.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := c.listUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}

	return nil, &Error{Kind: KindNotFound, Message: "no auth user with email " + email}
}

// InsertAllowedUser inserts a user id into the allowed_users table. A
// duplicate row returns a KindDuplicate error so callers can treat it as
// already-present rather than a failure.
func (c *Client) InsertAllowedUser(ctx context.Context, userID string) error {
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return errors.Wrap(err, "failed to encode allowed_users row")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.projectURL+"/rest/v1/allowed_users", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	return c.expectSuccess(req)
}

// TableExists probes a table through PostgREST by selecting a single row.
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.projectURL+"/rest/v1/"+table+"?select=*&limit=1", nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to build request")
	}
	c.authorize(req)

	err = c.expectSuccess(req)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err) || hasKind(err, KindUnsupported) || hasKind(err, KindQuery):
		return false, nil
	default:
		return false, err
	}
}

// SyncAllowedUsers resolves each email to an auth user and inserts it into
// allowed_users. Blank lines and #-comments are skipped. The optional report
// function receives one event per processed email; rendering is left to the
// caller.
func (c *Client) SyncAllowedUsers(ctx context.Context, emails []string, report func(email string, outcome SyncOutcome, err error)) (*SyncStats, error) {
	if report == nil {
		report = func(string, SyncOutcome, error) {}
	}

	stats := &SyncStats{}
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" || strings.HasPrefix(email, "#") {
			continue
		}

		user, err := c.GetUserByEmail(ctx, email)
		if err != nil {
			if !IsNotFound(err) {
				return stats, errors.Wrapf(err, "failed to look up %s", email)
			}

			// The user needs to sign up before they can be allowed in.
			stats.NotFound++
			report(email, SyncNotFound, err)
			continue
		}

		err = c.InsertAllowedUser(ctx, user.ID)
		switch {
		case err == nil:
			stats.Added++
			report(email, SyncAdded, nil)
		case IsDuplicate(err):
			stats.Skipped++
			report(email, SyncSkipped, nil)
		default:
			stats.Skipped++
			report(email, SyncSkipped, err)
		}
	}

	return stats, nil
}

func (c *Client) listUsers(ctx context.Context) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.projectURL+"/auth/v1/admin/users", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var payload struct {
		Users []User `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode user list")
	}

	return payload.Users, nil
}

// authorize sets the headers PostgREST and the auth admin API expect.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.secretKey)
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}

// expectSuccess performs the request and converts non-2xx responses into
// structured errors.
func (c *Client) expectSuccess(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return responseError(resp)
}

// responseError builds a structured error from a failed response. PostgREST
// reports duplicate keys with SQLSTATE 23505 in the body, which classifies
// more reliably than the HTTP status alone.
func responseError(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			message = payload.Message
		case payload.Msg != "":
			message = payload.Msg
		}

		if payload.Code == "23505" {
			return &Error{Kind: KindDuplicate, Status: resp.StatusCode, Message: message}
		}
	}

	return &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: message}
}
