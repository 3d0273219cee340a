// Package app is the composition surface of the widget runtime: it
// exposes the widget view, the session and alarm state endpoints, and
// the UI intents that translate into cross-frame commands.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/commentlab/widgetd/internal/domain"
	"github.com/commentlab/widgetd/internal/frame"
	"github.com/commentlab/widgetd/internal/notify"
	"github.com/commentlab/widgetd/internal/provider"
	"github.com/commentlab/widgetd/internal/session"
	"github.com/commentlab/widgetd/internal/store"
)

// Handler wires the widget view and API routes to the session,
// frame-channel, and notification subsystems.
type Handler struct {
	tokens    store.TokenStore
	sessions  *session.Controller
	channel   *frame.Channel
	alarms    *notify.Channel
	providers *provider.Registry
}

// NewHandler creates the app handler.
func NewHandler(tokens store.TokenStore, sessions *session.Controller, channel *frame.Channel, alarms *notify.Channel, providers *provider.Registry) *Handler {
	return &Handler{
		tokens:    tokens,
		sessions:  sessions,
		channel:   channel,
		alarms:    alarms,
		providers: providers,
	}
}

// RegisterRoutes mounts the widget routes. Anything unmatched
// redirects to the widget view.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.WidgetView)
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.SessionState)
		r.Get("/alarm", h.AlarmState)
		r.Post("/alarm/open", h.OpenAlarm)
		r.Post("/scroll-height", h.ScrollHeight)
		r.Post("/logout", h.Logout)
		r.Get("/login/{provider}", h.Login)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health reports liveness, including token store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "token store unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SessionState returns the current session snapshot.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.sessions.Snapshot())
}

// AlarmState returns the latest alarm content and the unseen flag.
func (h *Handler) AlarmState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"hasNewAlarm":   h.alarms.HasNewAlarm(),
		"recentContent": h.alarms.RecentContent(),
	})
}

// OpenAlarm opens the alarm modal on the hosting page and clears the
// unseen flag.
func (h *Handler) OpenAlarm(w http.ResponseWriter, r *http.Request) {
	h.channel.OpenAlarmModal()
	h.alarms.AckNewAlarm()
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ScrollHeight relays the widget's rendered height to the hosting
// page so it can resize the iframe.
func (h *Handler) ScrollHeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Height < 0 {
		Error(w, http.StatusBadRequest, "invalid height")
		return
	}
	h.channel.SetScrollHeight(body.Height)
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout tears the session down locally and revokes the access token
// best-effort.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login redirects the popup to the provider's authorization page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	authorizeURL, err := h.providers.AuthorizeURL(name, uuid.NewString())
	if err != nil {
		Error(w, http.StatusNotFound, "unknown provider")
		return
	}
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// RunStartup restores the persisted session and hooks the realtime
// subscription to identity changes. Called once from main before the
// server starts serving.
func (h *Handler) RunStartup(ctx context.Context) {
	h.sessions.OnUserChange(func(user *domain.UserProfile) { h.alarms.SetUser(user) })
	h.sessions.Resume(ctx)
	slog.Info("Session restored", "state", h.sessions.Snapshot().State.String())
}
