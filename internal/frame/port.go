package frame

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
)

const portWriteTimeout = 5 * time.Second

// Port is the communication endpoint toward the hosting page. It is
// absent until the host establishes the channel.
type Port interface {
	// Send writes one envelope to the host.
	Send(ctx context.Context, msg Message) error

	// Close tears the endpoint down with a reason.
	Close(reason string) error
}

// wsPort adapts a websocket connection to the Port interface.
type wsPort struct {
	conn *websocket.Conn
}

func newWSPort(conn *websocket.Conn) *wsPort {
	return &wsPort{conn: conn}
}

func (p *wsPort) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, portWriteTimeout)
	defer cancel()
	return p.conn.Write(writeCtx, websocket.MessageText, data)
}

func (p *wsPort) Close(reason string) error {
	return p.conn.Close(websocket.StatusNormalClosure, reason)
}
