package frame

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Channel is the widget side of the cross-frame protocol. Outbound
// senders are fire-and-forget: without a port they are silent no-ops,
// and send failures are logged, never propagated — the widget may
// render long before the host opens the channel.
type Channel struct {
	mu   sync.RWMutex
	port Port

	dispatchMu sync.Mutex // serializes Deliver, preserving arrival order
	stateMu    sync.Mutex // guards latest value and subscriber registry
	latest     Message
	hasLatest  bool
	subs       map[int]func(Message)
	nextSubID  int

	confirmMu sync.Mutex
	confirms  map[string]func()
}

// NewChannel creates a channel with no port attached.
func NewChannel() *Channel {
	return &Channel{
		subs:     make(map[int]func(Message)),
		confirms: make(map[string]func()),
	}
}

// AttachPort installs the port toward the hosting page, replacing and
// closing any previous one.
func (c *Channel) AttachPort(port Port) {
	c.mu.Lock()
	existing := c.port
	c.port = port
	c.mu.Unlock()

	if existing != nil && existing != port {
		_ = existing.Close("port replaced")
	}
	slog.Info("Frame port attached")
}

// DetachPort removes the port if it is still the current one, so a
// stale detach cannot drop a newer port.
func (c *Channel) DetachPort(port Port) {
	c.mu.Lock()
	if c.port == port {
		c.port = nil
		slog.Info("Frame port detached")
	}
	c.mu.Unlock()
}

// HasPort reports whether the host page has established the channel.
func (c *Channel) HasPort() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.port != nil
}

// SetScrollHeight tells the host to resize the widget iframe.
func (c *Channel) SetScrollHeight(px int) {
	c.send(Message{Kind: KindScrollHeight, Height: px})
}

// OpenAlert shows an alert on the hosting page.
func (c *Channel) OpenAlert(message string) {
	c.send(Message{Kind: KindAlert, Message: message})
}

// OpenConfirmModal shows a confirm dialog on the hosting page. The
// callback runs when the host reports the dialog was accepted.
func (c *Channel) OpenConfirmModal(message string, onConfirm func()) {
	id := uuid.NewString()

	c.confirmMu.Lock()
	c.confirms[id] = onConfirm
	c.confirmMu.Unlock()

	c.send(Message{Kind: KindConfirmModal, Message: message, ConfirmID: id})
}

// OpenAlarmModal opens the notification modal on the hosting page.
func (c *Channel) OpenAlarmModal() {
	c.send(Message{Kind: KindAlarmModal})
}

// OpenLikingUserModal opens the liking-users modal for a comment
// author on the hosting page.
func (c *Channel) OpenLikingUserModal(userID int64) {
	c.send(Message{Kind: KindLikingUserModal, UserID: userID})
}

func (c *Channel) send(msg Message) {
	c.mu.RLock()
	port := c.port
	c.mu.RUnlock()

	if port == nil {
		return
	}
	if err := port.Send(context.Background(), msg); err != nil {
		slog.Debug("Frame send failed", "kind", msg.Kind, "error", err)
	}
}

// SubscribeInbound registers a consumer for host messages, invoked in
// arrival order. The returned function removes the subscription.
func (c *Channel) SubscribeInbound(fn func(Message)) func() {
	c.stateMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.stateMu.Unlock()

	return func() {
		c.stateMu.Lock()
		delete(c.subs, id)
		c.stateMu.Unlock()
	}
}

// Latest returns the most recent inbound host message, if any. Older
// messages are not buffered.
func (c *Channel) Latest() (Message, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.latest, c.hasLatest
}

// Deliver dispatches one inbound host message. Confirm results fire
// their pending callback; every message reaches subscribers in the
// order it arrived.
func (c *Channel) Deliver(msg Message) {
	if msg.Kind == KindConfirmResult {
		c.confirmMu.Lock()
		onConfirm := c.confirms[msg.ConfirmID]
		delete(c.confirms, msg.ConfirmID)
		c.confirmMu.Unlock()

		if onConfirm != nil && msg.Accepted {
			onConfirm()
		}
	}

	// dispatchMu alone serializes deliveries; subscribers run without
	// stateMu held so they may call Latest or subscribe re-entrantly.
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.stateMu.Lock()
	c.latest = msg
	c.hasLatest = true
	fns := make([]func(Message), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.stateMu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}
