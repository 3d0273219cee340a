// Package oauth implements the widget's OAuth callback route: a
// short-lived, self-terminating popup flow. The callback page always
// ends by closing itself; what varies is whether authentication
// completed, timed out, or never started for lack of a code.
package oauth

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commentlab/widgetd/internal/domain"
	"github.com/commentlab/widgetd/internal/gateway"
	"github.com/commentlab/widgetd/internal/session"
)

// DefaultWatchdogTimeout bounds how long the popup may stay pending
// before it declares failure and closes.
const DefaultWatchdogTimeout = 5 * time.Second

const failureNotice = "Login failed. Please try again in a moment."

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTimeout
	outcomeCanceled
)

// Handler serves GET /oauth/{provider}.
type Handler struct {
	gw              gateway.AuthGateway
	sessions        *session.Controller
	watchdogTimeout time.Duration
}

// NewHandler creates the callback handler. A zero watchdogTimeout
// falls back to DefaultWatchdogTimeout.
func NewHandler(gw gateway.AuthGateway, sessions *session.Controller, watchdogTimeout time.Duration) *Handler {
	if watchdogTimeout <= 0 {
		watchdogTimeout = DefaultWatchdogTimeout
	}
	return &Handler{
		gw:              gw,
		sessions:        sessions,
		watchdogTimeout: watchdogTimeout,
	}
}

// ServeHTTP runs the callback flow and responds with a self-closing
// popup page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")

	// No authorization code: close immediately, no network call.
	if code == "" {
		slog.Info("OAuth callback without code, closing popup", "provider", provider)
		writeClosePage(w, "")
		return
	}

	switch h.runFlow(r.Context(), provider, code) {
	case outcomeTimeout:
		writeClosePage(w, failureNotice)
	default:
		writeClosePage(w, "")
	}
}

// runFlow races three terminations: the session user becoming present
// (success), the watchdog firing (failure notice), and the request
// context ending (popup gone). Both the watchdog and the user watcher
// are released on every path.
func (h *Handler) runFlow(ctx context.Context, provider, code string) outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	userPresent := make(chan struct{})
	var once sync.Once
	unsubscribe := h.sessions.OnUserChange(func(user *domain.UserProfile) {
		if user != nil {
			once.Do(func() { close(userPresent) })
		}
	})
	defer unsubscribe()

	// Re-login of an already signed-in account keeps the same identity,
	// so no change notification fires. A user that is present when the
	// watcher is armed counts as success right away.
	if h.sessions.User() != nil {
		once.Do(func() { close(userPresent) })
	}

	go func() {
		pair, err := h.gw.ExchangeCode(ctx, provider, code)
		if err != nil {
			// Logged and swallowed: the watchdog is the only
			// user-visible failure signal here.
			slog.Error("Authorization code exchange failed", "provider", provider, "error", err)
			return
		}
		if err := h.sessions.AdoptTokenPair(ctx, pair); err != nil {
			slog.Error("Failed to adopt token pair", "provider", provider, "error", err)
		}
	}()

	watchdog := time.NewTimer(h.watchdogTimeout)
	defer watchdog.Stop()

	select {
	case <-userPresent:
		slog.Info("OAuth login completed", "provider", provider)
		return outcomeSuccess
	case <-watchdog.C:
		slog.Warn("OAuth login watchdog fired", "provider", provider, "timeout", h.watchdogTimeout)
		return outcomeTimeout
	case <-ctx.Done():
		return outcomeCanceled
	}
}

var closePageTmpl = template.Must(template.New("close").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Login</title></head>
<body>
<script>
{{- if .Notice}}
alert({{.Notice}});
{{- end}}
window.close();
</script>
</body>
</html>
`))

func writeClosePage(w http.ResponseWriter, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := closePageTmpl.Execute(w, struct{ Notice string }{Notice: notice}); err != nil {
		slog.Debug("Failed to render close page", "error", err)
	}
}
