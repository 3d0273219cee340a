// Package notify maintains the realtime "new alarm" subscription. The
// subscription is keyed by the current user identity: every identity
// change tears down the old stream connection and, unless the session
// became anonymous, opens a new one.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/commentlab/widgetd/internal/domain"
)

const (
	redialInitialDelay = time.Second
	redialMaxDelay     = 30 * time.Second
)

// EventConn is one open stream connection delivering notification
// events for a single user.
type EventConn interface {
	// ReadEvent blocks until the next event or a connection error.
	ReadEvent(ctx context.Context) (domain.NotificationEvent, error)

	// Close tears the connection down.
	Close() error
}

// Dialer opens a stream connection scoped to a user identity.
type Dialer interface {
	Dial(ctx context.Context, userID int64) (EventConn, error)
}

// Channel tracks the latest alarm content and the unseen flag for the
// subscribed user. At most one stream connection is active at a time.
type Channel struct {
	dialer Dialer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	recent *domain.NotificationEvent
	hasNew bool
}

// NewChannel creates an unsubscribed notification channel.
func NewChannel(dialer Dialer) *Channel {
	return &Channel{dialer: dialer}
}

// SetUser switches the subscription to the given identity. The
// previous connection is fully torn down before a new one is opened;
// a nil user (anonymous) just closes any open connection.
func (c *Channel) SetUser(user *domain.UserProfile) {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if user == nil {
		return
	}

	ctx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancelRun
	c.done = runDone
	c.mu.Unlock()

	go c.run(ctx, user.ID, runDone)
}

// Close tears down any open subscription.
func (c *Channel) Close() {
	c.SetUser(nil)
}

// RecentContent returns the most recent event payload, nil before the
// first delivery. No history is retained.
func (c *Channel) RecentContent() *domain.NotificationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent
}

// HasNewAlarm reports whether an alarm arrived since the last Ack.
func (c *Channel) HasNewAlarm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasNew
}

// AckNewAlarm clears the unseen flag, e.g. when the alarm modal opens.
func (c *Channel) AckNewAlarm() {
	c.mu.Lock()
	c.hasNew = false
	c.mu.Unlock()
}

// run keeps one connection open for the user, redialing with capped
// backoff on drops, until the subscription context is cancelled.
func (c *Channel) run(ctx context.Context, userID int64, done chan struct{}) {
	defer close(done)

	delay := redialInitialDelay
	for {
		conn, err := c.dialer.Dial(ctx, userID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Alarm stream dial failed", "user_id", userID, "error", err)
			if !sleep(ctx, delay) {
				return
			}
			delay = min(delay*2, redialMaxDelay)
			continue
		}

		slog.Info("Alarm stream connected", "user_id", userID)
		delay = redialInitialDelay

		if err := c.readLoop(ctx, conn); err != nil && ctx.Err() == nil {
			slog.Warn("Alarm stream dropped", "user_id", userID, "error", err)
		}
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("Failed to close alarm stream", "error", closeErr)
		}
		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, delay) {
			return
		}
		delay = min(delay*2, redialMaxDelay)
	}
}

func (c *Channel) readLoop(ctx context.Context, conn EventConn) error {
	for {
		ev, err := conn.ReadEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		c.mu.Lock()
		c.recent = &ev
		c.hasNew = true
		c.mu.Unlock()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
