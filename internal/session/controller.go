// Package session owns the widget session state machine. It decides
// when an auth failure is healed by a token refresh, when it forces a
// logout, and keeps every other component's view of the current user
// consistent through change notifications.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/commentlab/widgetd/internal/domain"
	"github.com/commentlab/widgetd/internal/gateway"
	"github.com/commentlab/widgetd/internal/store"
)

const unknownErrorMessage = "Something went wrong. Please try again."

const revokeTimeout = 5 * time.Second

var errNoRefreshToken = errors.New("no refresh token available")

// Alerter surfaces a generic user-facing alert. Satisfied by the
// cross-frame message channel; a nil alerter drops alerts.
type Alerter interface {
	OpenAlert(message string)
}

// Controller is the session state machine. All session state mutation
// goes through it; the token store entries are written by it alone.
type Controller struct {
	gw      gateway.AuthGateway
	tokens  store.TokenStore
	alerter Alerter

	mu        sync.Mutex
	state     domain.SessionState
	user      *domain.UserProfile
	token     string // access token, memory-only
	isLoading bool
	isSuccess bool
	lastErr   *domain.ClassifiedAuthError
	gen       uint64 // request generation, last write wins
	epoch     uint64 // bumped on logout; stale refresh results check it

	refreshGroup  singleflight.Group
	inRefreshPass atomic.Bool

	obsMu     sync.Mutex
	observers map[int]func(*domain.UserProfile)
	nextObsID int
}

// NewController creates a session controller in the anonymous state.
func NewController(gw gateway.AuthGateway, tokens store.TokenStore, alerter Alerter) *Controller {
	return &Controller{
		gw:        gw,
		tokens:    tokens,
		alerter:   alerter,
		state:     domain.StateAnonymous,
		observers: make(map[int]func(*domain.UserProfile)),
	}
}

// OnUserChange registers an observer fired on every identity change,
// including the transition to anonymous (nil profile). The returned
// function removes the observer.
func (c *Controller) OnUserChange(fn func(*domain.UserProfile)) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) notifyUserChange(user *domain.UserProfile) {
	c.obsMu.Lock()
	fns := make([]func(*domain.UserProfile), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// Snapshot returns a point-in-time copy of the session.
func (c *Controller) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Session{
		State:       c.state,
		User:        c.user,
		AccessToken: c.token,
		IsLoading:   c.isLoading,
		IsSuccess:   c.isSuccess,
		LastError:   c.lastErr,
	}
}

// User returns the current user profile, nil when anonymous.
func (c *Controller) User() *domain.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Resume restores state on startup: a previously cached access token
// is loaded into memory, then the user fetch runs (anonymously when
// nothing was cached).
func (c *Controller) Resume(ctx context.Context) {
	token, err := c.tokens.Get(ctx, store.KeyAccessToken)
	if err != nil {
		slog.Warn("Failed to read cached access token", "error", err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.RequestUser(ctx)
}

// RequestUser fetches the current user profile with the current access
// token, or anonymously when none is held. It always runs, even right
// after the token became absent. A superseded in-flight fetch never
// overwrites fresher state.
func (c *Controller) RequestUser(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	token := c.token
	c.isLoading = true
	if token != "" && c.user == nil {
		c.state = domain.StateAuthenticating
	}
	c.mu.Unlock()

	user, err := c.gw.FetchUser(ctx, token)

	c.mu.Lock()
	if gen != c.gen {
		// A newer request owns the session now; drop this result.
		c.mu.Unlock()
		return
	}
	c.isLoading = false
	if err != nil {
		c.isSuccess = false
		c.mu.Unlock()
		slog.Warn("User fetch failed", "error", err)
		if code, ok := gateway.CodeOf(err); ok {
			c.HandleAuthFailure(ctx, code)
		} else {
			c.alert(unknownErrorMessage)
		}
		return
	}

	c.isSuccess = true
	c.lastErr = nil
	changed := !domain.SameIdentity(c.user, user)
	c.user = user
	if user != nil {
		c.state = domain.StateAuthenticated
	} else {
		c.state = domain.StateAnonymous
	}
	c.mu.Unlock()

	if changed {
		c.notifyUserChange(user)
	}
}

// HandleAuthFailure classifies a server error code from any
// authenticated call and applies the recovery strategy: refresh for
// retryable codes (only when a refresh token exists), logout for fatal
// codes, a generic alert for unknown ones.
func (c *Controller) HandleAuthFailure(ctx context.Context, code int) {
	cerr := Classify(code)

	c.mu.Lock()
	c.lastErr = cerr
	c.mu.Unlock()

	switch cerr.Kind {
	case domain.KindExpiredAccessToken, domain.KindRefreshTransientFailure:
		if c.inRefreshPass.Load() {
			// Second failure within one handling pass: escalate
			// instead of refreshing again.
			slog.Warn("Auth failure while refresh pass active, logging out", "code", code)
			c.Logout(ctx)
			return
		}
		refreshToken, err := c.tokens.Get(ctx, store.KeyRefreshToken)
		if err != nil {
			slog.Warn("Failed to read refresh token", "error", err)
			return
		}
		if refreshToken == "" {
			return
		}
		c.refreshAccessToken(ctx)
	case domain.KindFatalAuthFailure:
		slog.Info("Fatal auth failure, logging out", "code", code)
		c.Logout(ctx)
	default:
		slog.Warn("Unclassified auth failure", "code", code)
		c.alert(unknownErrorMessage)
	}
}

// refreshAccessToken exchanges the stored refresh token for a new
// access token. Concurrent triggers coalesce onto a single in-flight
// call; the follow-up user fetch runs exactly once per coalesced
// batch. The refresh is attempted at most once per failure event.
func (c *Controller) refreshAccessToken(ctx context.Context) {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		c.mu.Lock()
		epoch := c.epoch
		c.mu.Unlock()

		refreshToken, err := c.tokens.Get(ctx, store.KeyRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("read refresh token: %w", err)
		}
		if refreshToken == "" {
			return nil, errNoRefreshToken
		}

		c.setState(domain.StateRefreshPending)

		token, err := c.gw.RefreshAccessToken(ctx, refreshToken)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if epoch != c.epoch {
			// The session was torn down while the refresh was in
			// flight; its result must not resurrect it.
			c.mu.Unlock()
			slog.Info("Discarding refresh result for torn-down session")
			return nil, nil
		}
		c.token = token
		c.mu.Unlock()

		if err := c.tokens.Set(ctx, store.KeyAccessToken, token); err != nil {
			slog.Warn("Failed to persist access token", "error", err)
		}

		// Re-validate the session with the fresh token. A failure in
		// this fetch must not loop back into another refresh.
		c.inRefreshPass.Store(true)
		defer c.inRefreshPass.Store(false)
		c.RequestUser(ctx)

		return token, nil
	})
	if err != nil {
		if errors.Is(err, errNoRefreshToken) {
			return
		}
		if _, ok := gateway.CodeOf(err); ok {
			// The server rejected the refresh itself; no second
			// attempt, escalate.
			slog.Warn("Token refresh rejected, logging out", "error", err)
			c.Logout(ctx)
			return
		}
		slog.Warn("Token refresh failed", "error", err)
		c.alert(unknownErrorMessage)
	}
}

// AdoptTokenPair installs a freshly exchanged token pair: any
// previously cached access token is dropped, the refresh token and the
// active flag are persisted, the new access token is held in memory,
// and the user fetch is triggered.
func (c *Controller) AdoptTokenPair(ctx context.Context, pair domain.TokenPair) error {
	if err := c.tokens.Delete(ctx, store.KeyAccessToken); err != nil {
		return fmt.Errorf("clear cached access token: %w", err)
	}
	if err := c.tokens.Set(ctx, store.KeyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	if err := c.tokens.Set(ctx, store.KeyActive, "true"); err != nil {
		return fmt.Errorf("persist active flag: %w", err)
	}

	c.mu.Lock()
	c.token = pair.AccessToken
	c.state = domain.StateAuthenticating
	c.mu.Unlock()

	c.RequestUser(ctx)
	return nil
}

// Logout revokes the access token server-side (best effort, never
// blocking local teardown), clears the session back to anonymous, and
// purges the persisted entries.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	c.token = ""
	changed := c.user != nil
	c.user = nil
	c.isSuccess = false
	c.state = domain.StateLoggedOut
	c.gen++   // invalidate any in-flight user fetch
	c.epoch++ // invalidate any in-flight token refresh
	c.mu.Unlock()

	if token != "" {
		go func() {
			revokeCtx, cancel := context.WithTimeout(context.Background(), revokeTimeout)
			defer cancel()
			if err := c.gw.Revoke(revokeCtx, token); err != nil {
				slog.Warn("Token revoke failed", "error", err)
			}
		}()
	}

	if err := c.tokens.Purge(ctx, store.KeyActive, store.KeyAccessToken, store.KeyRefreshToken); err != nil {
		slog.Warn("Failed to purge session entries", "error", err)
	}

	if changed {
		c.notifyUserChange(nil)
	}

	// The access token is gone, but the user fetch still runs and
	// re-enters the anonymous state.
	c.RequestUser(ctx)
}

func (c *Controller) setState(state domain.SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) alert(message string) {
	if c.alerter != nil {
		c.alerter.OpenAlert(message)
	}
}
