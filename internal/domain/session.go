package domain

// SessionState is the lifecycle position of the widget session.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshPending
	StateLoggedOut
)

// String returns the state name for logs.
func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshPending:
		return "refresh_pending"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Session is a point-in-time snapshot of the widget session. The
// refresh token is never part of the snapshot; it lives only in the
// token store.
type Session struct {
	State       SessionState         `json:"state"`
	User        *UserProfile         `json:"user,omitempty"`
	AccessToken string               `json:"-"`
	IsLoading   bool                 `json:"isLoading"`
	IsSuccess   bool                 `json:"isSuccess"`
	LastError   *ClassifiedAuthError `json:"lastError,omitempty"`
}

// TokenPair is the result of exchanging an authorization code. The
// access token is memory-only; the refresh token is persisted.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
