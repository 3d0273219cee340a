package domain

import "fmt"

// AuthErrorKind partitions server-reported auth failures into the
// recovery strategies the session controller applies.
type AuthErrorKind int

const (
	// KindUnknown covers codes outside the classification table. They
	// surface as a generic user alert and cause no state transition.
	KindUnknown AuthErrorKind = iota

	// KindExpiredAccessToken is retryable via a token refresh.
	KindExpiredAccessToken

	// KindRefreshTransientFailure is retryable via a token refresh,
	// bounded to a single attempt per failure event.
	KindRefreshTransientFailure

	// KindFatalAuthFailure forces a logout. No retry.
	KindFatalAuthFailure
)

// String returns the kind name for logs.
func (k AuthErrorKind) String() string {
	switch k {
	case KindExpiredAccessToken:
		return "expired_access_token"
	case KindRefreshTransientFailure:
		return "refresh_transient_failure"
	case KindFatalAuthFailure:
		return "fatal_auth_failure"
	default:
		return "unknown"
	}
}

// ClassifiedAuthError is a server auth failure after classification.
// It is derived from the numeric code the server attaches to error
// responses and is never persisted.
type ClassifiedAuthError struct {
	Code int           `json:"code"`
	Kind AuthErrorKind `json:"kind"`
}

// Error implements the error interface.
func (e *ClassifiedAuthError) Error() string {
	return fmt.Sprintf("auth failure: code %d (%s)", e.Code, e.Kind)
}
