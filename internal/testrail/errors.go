package testrail

import (
	"errors"
	"fmt"
)

// ErrMissingConfig is returned when the required connection settings are
// incomplete. No network call is attempted in that case.
var ErrMissingConfig = errors.New("missing required TestRail configuration: base_url, username and api_key are required")

// AuthError indicates the credentials were rejected by the connection probe.
type AuthError struct {
	Username string
	BaseURL  string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("TestRail authentication failed for %s at %s: %v (verify the API key under My Settings > API)", e.Username, e.BaseURL, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a named remote entity does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in TestRail", e.Kind, e.Name)
}

// TransportError indicates a connection-level failure before any HTTP
// status was received. Calls are never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("TestRail request %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError indicates a non-2xx response from the TestRail API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("TestRail API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("TestRail API error: HTTP %d - %s", e.StatusCode, e.Body)
}
