package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentlab/widgetd/internal/domain"
)

// fakeConn delivers scripted events and tracks closure.
type fakeConn struct {
	userID int64
	events chan domain.NotificationEvent

	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) ReadEvent(ctx context.Context) (domain.NotificationEvent, error) {
	select {
	case <-ctx.Done():
		return domain.NotificationEvent{}, ctx.Err()
	case ev := <-c.events:
		return ev, nil
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out fakeConns and records every dial.
type fakeDialer struct {
	mu     sync.Mutex
	conns  []*fakeConn
	dialed chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, userID int64) (EventConn, error) {
	conn := &fakeConn{userID: userID, events: make(chan domain.NotificationEvent, 8)}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	d.dialed <- conn
	return conn, nil
}

func (d *fakeDialer) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	open := 0
	for _, conn := range d.conns {
		if !conn.isClosed() {
			open++
		}
	}
	return open
}

func waitDial(t *testing.T, d *fakeDialer) *fakeConn {
	t.Helper()
	select {
	case conn := <-d.dialed:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func TestSwitchingUserResubscribes(t *testing.T) {
	dialer := newFakeDialer()
	c := NewChannel(dialer)
	defer c.Close()

	c.SetUser(&domain.UserProfile{ID: 1, Nickname: "a"})
	connA := waitDial(t, dialer)
	assert.Equal(t, int64(1), connA.userID)

	c.SetUser(&domain.UserProfile{ID: 2, Nickname: "b"})
	connB := waitDial(t, dialer)
	assert.Equal(t, int64(2), connB.userID)

	// The old connection is torn down before the new one lives on.
	assert.True(t, connA.isClosed())
	assert.Equal(t, 1, dialer.openCount(), "at most one active connection")
}

func TestAnonymousClosesConnection(t *testing.T) {
	dialer := newFakeDialer()
	c := NewChannel(dialer)

	c.SetUser(&domain.UserProfile{ID: 1, Nickname: "a"})
	conn := waitDial(t, dialer)

	c.SetUser(nil)

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, dialer.openCount())

	select {
	case extra := <-dialer.dialed:
		t.Fatalf("unexpected dial for user %d after going anonymous", extra.userID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventUpdatesStateInDeliveryOrder(t *testing.T) {
	dialer := newFakeDialer()
	c := NewChannel(dialer)
	defer c.Close()

	c.SetUser(&domain.UserProfile{ID: 1, Nickname: "a"})
	conn := waitDial(t, dialer)

	require.False(t, c.HasNewAlarm())
	require.Nil(t, c.RecentContent())

	first := domain.NotificationEvent{OccurredAt: time.Now(), HasUnseen: true, Payload: json.RawMessage(`"first"`)}
	second := domain.NotificationEvent{OccurredAt: time.Now(), HasUnseen: true, Payload: json.RawMessage(`"second"`)}
	conn.events <- first
	conn.events <- second

	require.Eventually(t, func() bool {
		recent := c.RecentContent()
		return recent != nil && string(recent.Payload) == `"second"`
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, c.HasNewAlarm())

	c.AckNewAlarm()
	assert.False(t, c.HasNewAlarm())
	// Acknowledging clears only the flag, not the content.
	require.NotNil(t, c.RecentContent())
	assert.Equal(t, `"second"`, string(c.RecentContent().Payload))
}
