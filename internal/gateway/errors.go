package gateway

import (
	"errors"
	"fmt"
)

// ErrMissingAuthorizationCode indicates an exchange was attempted
// without an authorization code. No network call is made in this case.
var ErrMissingAuthorizationCode = errors.New("missing authorization code")

// APIError is a structured error response from the comment platform.
// The numeric code feeds the session controller's classification
// table; the gateway itself never interprets it.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error code %d: %s", e.Code, e.Message)
}

// CodeOf extracts the server error code from err, if any. Returns 0
// and false for transport-level failures that carry no code.
func CodeOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}
