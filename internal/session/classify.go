package session

import "github.com/commentlab/widgetd/internal/domain"

// Server error codes with a fixed recovery strategy. Everything else
// is unknown and surfaces as a generic alert.
const (
	codeExpiredAccessToken  = 801
	codeInvalidAccessToken  = 806
	codeUnregisteredUser    = 807
	codeRefreshTransient    = 808
	codeInvalidRefreshToken = 809
)

// Classify maps a server-reported error code onto the recovery table:
// 801 and 808 are retryable via token refresh, 806/807/809 force a
// logout, anything else is unknown.
func Classify(code int) *domain.ClassifiedAuthError {
	kind := domain.KindUnknown
	switch code {
	case codeExpiredAccessToken:
		kind = domain.KindExpiredAccessToken
	case codeRefreshTransient:
		kind = domain.KindRefreshTransientFailure
	case codeInvalidAccessToken, codeUnregisteredUser, codeInvalidRefreshToken:
		kind = domain.KindFatalAuthFailure
	}
	return &domain.ClassifiedAuthError{Code: code, Kind: kind}
}
