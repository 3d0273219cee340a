package frame

import (
	"context"
	"sync"
	"testing"
)

// recordingPort captures sent envelopes.
type recordingPort struct {
	mu     sync.Mutex
	sent   []Message
	closed bool
	reason string
}

func (p *recordingPort) Send(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingPort) Close(reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reason = reason
	return nil
}

func (p *recordingPort) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

func TestSendersWithoutPortAreNoOps(t *testing.T) {
	c := NewChannel()

	// None of these may panic or have observable effect before the
	// host establishes the port.
	c.SetScrollHeight(120)
	c.OpenAlert("hello")
	c.OpenConfirmModal("sure?", func() {})
	c.OpenAlarmModal()
	c.OpenLikingUserModal(7)

	if c.HasPort() {
		t.Fatal("expected no port")
	}
}

func TestSetScrollHeightSendsOneMessage(t *testing.T) {
	c := NewChannel()
	port := &recordingPort{}
	c.AttachPort(port)

	c.SetScrollHeight(120)

	msgs := port.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 message, got %d", len(msgs))
	}
	if msgs[0].Kind != KindScrollHeight || msgs[0].Height != 120 {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestAttachPortReplacesAndClosesPrevious(t *testing.T) {
	c := NewChannel()
	old := &recordingPort{}
	c.AttachPort(old)

	replacement := &recordingPort{}
	c.AttachPort(replacement)

	if !old.closed {
		t.Error("expected previous port to be closed")
	}

	c.OpenAlert("after replace")
	if len(replacement.messages()) != 1 {
		t.Errorf("expected message on replacement port, got %d", len(replacement.messages()))
	}
	if len(old.messages()) != 0 {
		t.Errorf("expected no message on old port, got %d", len(old.messages()))
	}
}

func TestDetachPortIgnoresStalePort(t *testing.T) {
	c := NewChannel()
	old := &recordingPort{}
	current := &recordingPort{}

	c.AttachPort(old)
	c.AttachPort(current)

	// A late detach from the replaced connection must not drop the
	// live port.
	c.DetachPort(old)

	if !c.HasPort() {
		t.Fatal("expected live port to survive stale detach")
	}

	c.DetachPort(current)
	if c.HasPort() {
		t.Fatal("expected port to be detached")
	}
}

func TestConfirmCallbackFiresOnAcceptedResult(t *testing.T) {
	c := NewChannel()
	port := &recordingPort{}
	c.AttachPort(port)

	fired := 0
	c.OpenConfirmModal("delete comment?", func() { fired++ })

	msgs := port.messages()
	if len(msgs) != 1 || msgs[0].ConfirmID == "" {
		t.Fatalf("expected confirm message with id, got %+v", msgs)
	}

	c.Deliver(Message{Kind: KindConfirmResult, ConfirmID: msgs[0].ConfirmID, Accepted: true})
	if fired != 1 {
		t.Errorf("expected callback to fire once, fired %d times", fired)
	}

	// A duplicate result must not fire the callback again.
	c.Deliver(Message{Kind: KindConfirmResult, ConfirmID: msgs[0].ConfirmID, Accepted: true})
	if fired != 1 {
		t.Errorf("expected callback to stay at 1, fired %d times", fired)
	}
}

func TestConfirmCallbackSkippedOnDecline(t *testing.T) {
	c := NewChannel()
	port := &recordingPort{}
	c.AttachPort(port)

	fired := false
	c.OpenConfirmModal("delete comment?", func() { fired = true })

	id := port.messages()[0].ConfirmID
	c.Deliver(Message{Kind: KindConfirmResult, ConfirmID: id, Accepted: false})

	if fired {
		t.Error("expected declined confirm to not fire callback")
	}
}

func TestInboundDeliveryOrderPreserved(t *testing.T) {
	c := NewChannel()

	var got []string
	c.SubscribeInbound(func(msg Message) {
		got = append(got, msg.Message)
	})

	c.Deliver(Message{Kind: KindAlert, Message: "first"})
	c.Deliver(Message{Kind: KindAlert, Message: "second"})
	c.Deliver(Message{Kind: KindAlert, Message: "third"})

	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	latest, ok := c.Latest()
	if !ok || latest.Message != "third" {
		t.Errorf("expected latest to be %q, got %+v", "third", latest)
	}
}

func TestSubscriberMayUseChannelDuringDelivery(t *testing.T) {
	c := NewChannel()

	var latestSeen []string
	c.SubscribeInbound(func(msg Message) {
		// Reading the latest value from inside a callback must not
		// deadlock, and must already reflect the delivered message.
		if latest, ok := c.Latest(); ok {
			latestSeen = append(latestSeen, latest.Message)
		}
	})

	c.Deliver(Message{Kind: KindAlert, Message: "one"})
	c.Deliver(Message{Kind: KindAlert, Message: "two"})

	want := []string{"one", "two"}
	if len(latestSeen) != len(want) {
		t.Fatalf("expected %d reads, got %d", len(want), len(latestSeen))
	}
	for i := range want {
		if latestSeen[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], latestSeen[i])
		}
	}

	// Subscribing from inside a callback must not deadlock either.
	added := false
	c.SubscribeInbound(func(Message) {
		if !added {
			added = true
			c.SubscribeInbound(func(Message) {})
		}
	})
	c.Deliver(Message{Kind: KindAlert, Message: "three"})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := NewChannel()

	count := 0
	unsubscribe := c.SubscribeInbound(func(Message) { count++ })

	c.Deliver(Message{Kind: KindAlert, Message: "one"})
	unsubscribe()
	c.Deliver(Message{Kind: KindAlert, Message: "two"})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}
