package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coder/websocket"

	"github.com/commentlab/widgetd/internal/domain"
)

// WSDialer opens WebSocket connections to the platform alarm stream.
type WSDialer struct {
	StreamURL string
}

// Dial connects to the alarm stream scoped to the user identity.
func (d *WSDialer) Dial(ctx context.Context, userID int64) (EventConn, error) {
	u := d.StreamURL + "?userId=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial alarm stream: %w", err)
	}
	return &wsEventConn{conn: conn}, nil
}

// wsEventConn adapts a websocket connection to EventConn.
type wsEventConn struct {
	conn *websocket.Conn
}

func (c *wsEventConn) ReadEvent(ctx context.Context) (domain.NotificationEvent, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return domain.NotificationEvent{}, err
	}

	var ev domain.NotificationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.NotificationEvent{}, fmt.Errorf("parse notification event: %w", err)
	}
	return ev, nil
}

func (c *wsEventConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "unsubscribed")
}
