package frame

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// Handler upgrades the host page's connection into the frame port.
// Only one port is live at a time; a new connection replaces the
// previous one.
type Handler struct {
	channel       *Channel
	allowedOrigin string
	isDev         bool
}

// NewHandler creates the WebSocket handler for the frame port endpoint.
func NewHandler(channel *Channel, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		channel:       channel,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("Frame port connection request", "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept frame port", "error", err)
		return
	}

	port := newWSPort(ws)
	h.channel.AttachPort(port)
	defer h.channel.DetachPort(port)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "channel closed"); closeErr != nil {
			slog.Debug("Failed to close frame port", "error", closeErr)
		}
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Frame port closed by host")
			} else {
				slog.Warn("Frame port read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Malformed host message dropped", "error", err)
			continue
		}

		h.channel.Deliver(msg)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Frame port origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
