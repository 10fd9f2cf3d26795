package transport

import (
	"context"
	"testing"

	"rumorcore/internal/rumor"
)

func TestSubject_IsPerPeer(t *testing.T) {
	if subject(1) == subject(2) {
		t.Fatalf("expected distinct subjects for distinct peer ids")
	}
	if subject(1) != "rumorcore.msg.1" {
		t.Fatalf("got %q, want rumorcore.msg.1", subject(1))
	}
}

func TestNewNATSTransport_SendFailsBeforeStart(t *testing.T) {
	tr := NewNATSTransport(1, "nats://127.0.0.1:4222", "")
	if err := tr.Send(context.Background(), 2, rumor.NewPush(9, 1)); err == nil {
		t.Fatalf("expected Send to fail before Start connects to a server")
	}
}
