// Package transport carries rumor.Message values between nodes. It is
// deliberately outside internal/rumor: the engine never imports it, and
// every failure here (dial error, timeout, bad signature) is swallowed
// at this layer rather than propagated into the Holder, consistent with
// the engine's no-internal-retries error model.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rumorcore/internal/rumor"
)

// Envelope is the wire format for one rumor.Message exchange. Signature
// authenticates the envelope itself (transport-level integrity), not the
// RSC message semantics — signing here never reintroduces authenticated
// rumor messages, which spec scope excludes.
type Envelope struct {
	ID        uuid.UUID     `json:"id"`
	From      rumor.PeerID  `json:"from"`
	To        rumor.PeerID  `json:"to"`
	Msg       wireMessage   `json:"msg"`
	Signature string        `json:"signature,omitempty"`
}

// wireMessage is rumor.Message's JSON projection. Type is encoded as a
// self-describing string tag rather than the int constant
// MessageType uses internally, so envelopes remain readable on the wire
// independent of internal/rumor's iota ordering.
type wireMessage struct {
	Type    string   `json:"type"`
	RumorID rumor.ID `json:"rumor_id"`
	Age     int      `json:"age"`
}

func toWire(m rumor.Message) wireMessage {
	var t string
	switch m.Type {
	case rumor.Push:
		t = "PUSH"
	case rumor.Pull:
		t = "PULL"
	case rumor.EmptyPush:
		t = "EMPTY_PUSH"
	case rumor.EmptyPull:
		t = "EMPTY_PULL"
	default:
		t = "UNKNOWN"
	}
	return wireMessage{Type: t, RumorID: m.RumorID, Age: m.Age}
}

func fromWire(w wireMessage) (rumor.Message, error) {
	switch w.Type {
	case "PUSH":
		return rumor.NewPush(w.RumorID, w.Age), nil
	case "PULL":
		return rumor.NewPull(w.RumorID, w.Age), nil
	case "EMPTY_PUSH":
		return rumor.NewEmptyPush(), nil
	case "EMPTY_PULL":
		return rumor.NewEmptyPull(), nil
	default:
		return rumor.Message{}, fmt.Errorf("transport: unknown wire message type %q", w.Type)
	}
}

// NewEnvelope builds an unsigned envelope for msg travelling from->to.
func NewEnvelope(from, to rumor.PeerID, msg rumor.Message) Envelope {
	return Envelope{ID: uuid.New(), From: from, To: to, Msg: toWire(msg)}
}

// Message decodes the envelope's payload back into a rumor.Message.
func (e Envelope) Message() (rumor.Message, error) {
	return fromWire(e.Msg)
}

// Marshal serializes the envelope to JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes JSON bytes into an Envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// signingPayload returns the bytes signed/verified by auth.go: the
// envelope with its own Signature field cleared, re-marshaled
// deterministically.
func (e Envelope) signingPayload() ([]byte, error) {
	e.Signature = ""
	return json.Marshal(e)
}
