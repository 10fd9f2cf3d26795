package transport

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/nats-io/nats.go"

	"rumorcore/internal/logging"
	"rumorcore/internal/rumor"
)

// NATSTransport delivers envelopes by publishing/subscribing on a
// per-peer NATS subject, an alternative to HTTPTransport for
// deployments that already run a message bus. Grounded on
// ruvnet-alienator's nats.go usage (connect, Publish, Subscribe).
type NATSTransport struct {
	selfID        rumor.PeerID
	url           string
	clusterSecret string

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATSTransport returns a transport bound to self that will connect
// to url on Start.
func NewNATSTransport(self rumor.PeerID, url, clusterSecret string) *NATSTransport {
	return &NATSTransport{selfID: self, url: url, clusterSecret: clusterSecret}
}

func subject(peer rumor.PeerID) string {
	return "rumorcore.msg." + strconv.Itoa(int(peer))
}

// Start connects to the NATS server and subscribes to this node's own
// subject, dispatching every received envelope to handler.
func (t *NATSTransport) Start(ctx context.Context, handler Dispatcher) error {
	conn, err := nats.Connect(t.url)
	if err != nil {
		return fmt.Errorf("transport: connect to nats at %s: %w", t.url, err)
	}

	sub, err := conn.Subscribe(subject(t.selfID), func(m *nats.Msg) {
		env, err := Unmarshal(m.Data)
		if err != nil {
			logging.Warnw("nats transport received malformed envelope", "err", err)
			return
		}
		if t.clusterSecret != "" {
			ok, err := Verify(env, t.clusterSecret)
			if err != nil || !ok {
				logging.Warnw("nats transport rejected envelope with bad signature", "from", env.From)
				return
			}
		}
		msg, err := env.Message()
		if err != nil {
			logging.Warnw("nats transport received invalid message", "err", err)
			return
		}
		to, replies := handler(msg, env.From)
		for _, reply := range replies {
			if err := t.Send(ctx, to, reply); err != nil {
				logging.Warnw("nats transport failed to send reply", "to", to, "err", err)
			}
		}
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("transport: subscribe to %s: %w", subject(t.selfID), err)
	}

	t.mu.Lock()
	t.conn = conn
	t.sub = sub
	t.mu.Unlock()

	logging.Infow("nats transport started", "subject", subject(t.selfID))
	return nil
}

// Stop unsubscribes and closes the NATS connection.
func (t *NATSTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		if err := t.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	if t.conn != nil {
		t.conn.Close()
	}
	return nil
}

// Send publishes an envelope on peer "to"'s subject.
func (t *NATSTransport) Send(ctx context.Context, to rumor.PeerID, msg rumor.Message) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: nats connection not started")
	}

	env := NewEnvelope(t.selfID, to, msg)
	if t.clusterSecret != "" {
		signed, err := Sign(env, t.clusterSecret)
		if err != nil {
			return fmt.Errorf("transport: sign envelope: %w", err)
		}
		env = signed
	}

	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	return conn.Publish(subject(to), body)
}
