package platform

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers branch on. Transport
// failures are returned wrapped but unclassified; IsTransient picks
// them up.
var (
	// ErrNoToken means no credential was supplied at all. This is a
	// local precondition failure, not a server rejection.
	ErrNoToken = errors.New("platform: missing auth token")

	// ErrUnauthorized means the server rejected a present credential.
	ErrUnauthorized = errors.New("platform: unauthorized")

	// ErrNotFound means the requested resource does not exist
	// server-side.
	ErrNotFound = errors.New("platform: not found")

	// ErrNotReady means a connect link was requested for a project the
	// server does not consider linkable yet.
	ErrNotReady = errors.New("platform: project not ready for linking")
)

// APIError is a non-2xx response that carries a server-provided
// message. The Detail text is surfaced to users verbatim.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("platform: server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("platform: server returned %d", e.StatusCode)
}

// IsTransient reports whether err is worth retrying later: transport
// failures and 5xx responses. Credential rejections, missing resources
// and 4xx validation errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoToken) || errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotReady) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Anything else is a transport-level failure.
	return true
}
