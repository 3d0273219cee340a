package frame

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestFramePortRoundTrip(t *testing.T) {
	channel := NewChannel()
	handler := NewHandler(channel, "*", true)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial frame port: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// Wait for the port to be attached.
	deadline := time.Now().Add(2 * time.Second)
	for !channel.HasPort() {
		if time.Now().After(deadline) {
			t.Fatal("port was never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Outbound: widget -> host.
	channel.SetScrollHeight(480)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read outbound message: %v", err)
	}
	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse outbound message: %v", err)
	}
	if out.Kind != KindScrollHeight || out.Height != 480 {
		t.Errorf("unexpected outbound message %+v", out)
	}

	// Inbound: host -> widget.
	inbound := Message{Kind: KindConfirmResult, ConfirmID: "abc", Accepted: true}
	payload, err := json.Marshal(inbound)
	if err != nil {
		t.Fatalf("marshal inbound message: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write inbound message: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		if latest, ok := channel.Latest(); ok && latest.ConfirmID == "abc" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("inbound message never delivered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
