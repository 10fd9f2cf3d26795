package transport

import (
	"context"

	"rumorcore/internal/rumor"
)

// Dispatcher handles one inbound envelope and returns the reply
// envelopes (if any) to send back to its sender. internal/node supplies
// an implementation backed by rumor.Holder.ReceivedMessage.
type Dispatcher func(msg rumor.Message, from rumor.PeerID) (rumor.PeerID, []rumor.Message)

// Transport delivers rumor.Message values between peers. Every failure
// is reported to the caller but never retried internally; Holder state
// is never blocked on transport success.
type Transport interface {
	// Start begins accepting inbound envelopes, dispatching each to
	// handler and sending back any replies it returns.
	Start(ctx context.Context, handler Dispatcher) error
	// Stop shuts the transport down.
	Stop() error
	// Send delivers msg to the peer registered under to's address.
	Send(ctx context.Context, to rumor.PeerID, msg rumor.Message) error
}

// AddressBook resolves a peer id to a host:port for HTTPTransport.
// NATSTransport does not use one; it derives each peer's subject from
// the peer id.
type AddressBook interface {
	Address(peer rumor.PeerID) (string, bool)
}

// StaticAddressBook is the simplest AddressBook: a fixed map assembled
// once by internal/membership at startup.
type StaticAddressBook map[rumor.PeerID]string

func (b StaticAddressBook) Address(peer rumor.PeerID) (string, bool) {
	addr, ok := b[peer]
	return addr, ok
}
