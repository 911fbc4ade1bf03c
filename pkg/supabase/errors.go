package supabase

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies a platform failure. The migration runner uses the
// classification to decide whether a second execution path is worth trying;
// commands use it to distinguish "table missing" from "statement invalid".
type ErrorKind string

const (
	// KindUnknown is the zero classification.
	KindUnknown ErrorKind = "unknown"

	// KindUnsupported indicates the endpoint or method was rejected, not the
	// statement itself. Another execution path may succeed.
	KindUnsupported ErrorKind = "unsupported"

	// KindDuplicate indicates a unique-constraint violation.
	KindDuplicate ErrorKind = "duplicate"

	// KindNotFound indicates a missing table or resource.
	KindNotFound ErrorKind = "not_found"

	// KindAuth indicates the credentials were rejected.
	KindAuth ErrorKind = "auth"

	// KindUnavailable indicates the platform itself failed or timed out.
	KindUnavailable ErrorKind = "unavailable"

	// KindQuery indicates the statement or request itself failed.
	KindQuery ErrorKind = "query"
)

// Error is a structured platform error.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("supabase: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("supabase: %s: %s", e.Kind, e.Message)
}

// Unsupported reports whether the error marks an incompatibility with the
// execution path rather than a failure of the statement itself. The migrate
// package checks for this method when deciding to fall back.
func (e *Error) Unsupported() bool {
	return e.Kind == KindUnsupported
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsDuplicate reports whether err carries KindDuplicate.
func IsDuplicate(err error) bool {
	return hasKind(err, KindDuplicate)
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// kindForStatus maps an HTTP response status to an error kind. Endpoint-level
// rejections (missing route, bad method) classify as unsupported so the
// runner can try the fallback execution path.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusConflict:
		return KindDuplicate
	case status == http.StatusNotFound ||
		status == http.StatusMethodNotAllowed ||
		status == http.StatusNotImplemented:
		return KindUnsupported
	case status >= http.StatusInternalServerError:
		return KindUnavailable
	default:
		return KindQuery
	}
}
