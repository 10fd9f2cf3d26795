package rumor

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// NoPeer is the sentinel returned by AdvanceRound when the membership
// set is empty.
const NoPeer PeerID = -1

// RumorSnapshot is a point-in-time, lock-free view of one rumor's state,
// returned by Holder.RumorsMap for quiescent inspection.
type RumorSnapshot struct {
	Phase Phase
	Age   int
}

// holderConfig accumulates optional construction parameters. It exists
// so NewHolder can offer the four construction forms spec.md describes
// (membership alone; membership + explicit NetworkConfig; membership +
// peer-chooser callback; both) through a single variadic option list
// instead of four overloaded constructors, which Go does not have.
type holderConfig struct {
	cfg          *NetworkConfig
	nextMemberCB func() PeerID
}

// HolderOption configures an optional construction parameter for NewHolder.
type HolderOption func(*holderConfig)

// WithNetworkConfig supplies an explicit NetworkConfig instead of having
// NewHolder derive one from the membership size. Construction fails if
// cfg's NetworkSize does not equal the size of the deduplicated
// membership set passed to NewHolder.
func WithNetworkConfig(cfg NetworkConfig) HolderOption {
	return func(hc *holderConfig) { hc.cfg = &cfg }
}

// WithNextMemberCB supplies a deterministic peer chooser, used by tests
// in place of the process-wide PRNG.
func WithNextMemberCB(cb func() PeerID) HolderOption {
	return func(hc *holderConfig) { hc.nextMemberCB = cb }
}

// Holder is the per-node aggregator: it owns the fixed membership set,
// the rumor map, round state, and statistics for one node. A Holder is
// created once per node and lives for the node's lifetime; the zero
// value is not usable, use NewHolder.
type Holder struct {
	mu sync.Mutex

	selfID PeerID
	cfg    NetworkConfig
	peers  []PeerID // ordered, excludes selfID, fixed at construction

	rumors              map[ID]*StateMachine
	peersInCurrentRound map[PeerID]struct{}
	stats               *Statistics
	nextMemberCB        func() PeerID
}

// NewHolder constructs a Holder for selfID with the given membership set
// (which may include selfID and duplicates; both are normalized away).
// It fails only if an explicitly supplied NetworkConfig's NetworkSize
// disagrees with the deduplicated membership size.
func NewHolder(peers []PeerID, selfID PeerID, opts ...HolderOption) (*Holder, error) {
	var hc holderConfig
	for _, opt := range opts {
		opt(&hc)
	}

	seen := make(map[PeerID]struct{}, len(peers))
	ordered := make([]PeerID, 0, len(peers))
	for _, p := range peers {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		ordered = append(ordered, p)
	}

	var cfg NetworkConfig
	if hc.cfg != nil {
		if hc.cfg.NetworkSize() != len(ordered) {
			return nil, fmt.Errorf("rumor: network config size %d does not match membership size %d", hc.cfg.NetworkSize(), len(ordered))
		}
		cfg = *hc.cfg
	} else {
		cfg = NewNetworkConfig(len(ordered))
	}

	filtered := make([]PeerID, 0, len(ordered))
	for _, p := range ordered {
		if p == selfID {
			continue
		}
		filtered = append(filtered, p)
	}

	h := &Holder{
		selfID:              selfID,
		cfg:                 cfg,
		peers:               filtered,
		rumors:              make(map[ID]*StateMachine),
		peersInCurrentRound: make(map[PeerID]struct{}),
		stats:               NewStatistics(),
		nextMemberCB:        hc.nextMemberCB,
	}
	h.stats.Increase(NumPeers, float64(len(ordered)-1))
	return h, nil
}

// AddRumor inserts a fresh, locally-injected rumor. It returns true if
// the rumor was newly created, false if it already existed (idempotent).
func (h *Holder) AddRumor(rumorID ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rumors[rumorID]; exists {
		return false
	}
	h.rumors[rumorID] = NewStateMachine(h.cfg)
	return true
}

// ReceivedMessage processes a message arriving from fromPeer and returns
// the peer to reply to (always fromPeer) and the list of reply messages.
func (h *Holder) ReceivedMessage(msg Message, fromPeer PeerID) (PeerID, []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Increase(NumMessagesReceived, 1)

	_, alreadyInRound := h.peersInCurrentRound[fromPeer]
	isNewPeer := !alreadyInRound
	h.peersInCurrentRound[fromPeer] = struct{}{}

	var replies []Message
	if isNewPeer && (msg.Type == Push || msg.Type == EmptyPush) {
		for rid, sm := range h.rumors {
			if sm.Age() > 0 && !sm.IsOld() {
				replies = append(replies, NewPull(rid, sm.Age()))
			}
		}
		sort.Slice(replies, func(i, j int) bool { return replies[i].RumorID < replies[j].RumorID })

		if len(replies) == 0 {
			replies = append(replies, NewEmptyPull())
			h.stats.Increase(NumEmptyPullMessages, 1)
		} else {
			h.stats.Increase(NumPullMessages, float64(len(replies)))
		}
	}

	if msg.RumorID >= 0 {
		if sm, exists := h.rumors[msg.RumorID]; exists {
			sm.RumorReceived(fromPeer, msg.Age)
		} else {
			h.rumors[msg.RumorID] = NewStateMachineFromPeer(h.cfg, fromPeer, msg.Age)
		}
	}

	return fromPeer, replies
}

// AdvanceRound runs one round: it picks the next peer to push to,
// advances every rumor's state machine, and returns the target peer
// plus the push messages to send it. If the membership set is empty it
// returns (NoPeer, nil) without side effects; the Rounds counter is not
// incremented in that case.
func (h *Holder) AdvanceRound() (PeerID, []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.peers) == 0 {
		return NoPeer, nil
	}

	h.stats.Increase(Rounds, 1)

	var toPeer PeerID
	if h.nextMemberCB != nil {
		toPeer = h.nextMemberCB()
	} else {
		toPeer = choosePeer(h.peers)
	}

	var pushes []Message
	for rid, sm := range h.rumors {
		sm.AdvanceRound(h.peersInCurrentRound)
		if !sm.IsOld() {
			pushes = append(pushes, NewPush(rid, sm.Age()))
		}
	}
	sort.Slice(pushes, func(i, j int) bool { return pushes[i].RumorID < pushes[j].RumorID })
	h.stats.Increase(NumPushMessages, float64(len(pushes)))

	if len(pushes) == 0 {
		pushes = append(pushes, NewEmptyPush())
		h.stats.Increase(NumEmptyPushMessages, 1)
	}

	h.peersInCurrentRound = make(map[PeerID]struct{})

	return toPeer, pushes
}

// RumorExists reports whether rumorID has been seen, locally injected or
// learned from a peer.
func (h *Holder) RumorExists(rumorID ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, exists := h.rumors[rumorID]
	return exists
}

// SelfID returns the local node's identifier. Unlocked: intended for
// quiescent inspection, as are every accessor below.
func (h *Holder) SelfID() PeerID { return h.selfID }

// NetworkConfig returns the immutable epidemic configuration.
func (h *Holder) NetworkConfig() NetworkConfig { return h.cfg }

// Peers returns a copy of the fixed, ordered peer set (excluding self).
func (h *Holder) Peers() []PeerID {
	out := make([]PeerID, len(h.peers))
	copy(out, h.peers)
	return out
}

// RumorsMap returns a snapshot of every known rumor's phase and age.
func (h *Holder) RumorsMap() map[ID]RumorSnapshot {
	out := make(map[ID]RumorSnapshot, len(h.rumors))
	for rid, sm := range h.rumors {
		out[rid] = RumorSnapshot{Phase: sm.Phase(), Age: sm.Age()}
	}
	return out
}

// Statistics returns the statistics registry. Callers must not mutate it
// concurrently with in-flight AddRumor/ReceivedMessage/AdvanceRound calls.
func (h *Holder) Statistics() *Statistics { return h.stats }

// PrintStatistics writes a human-readable statistics report, in the
// fixed enum order, prefixed by the node's id.
func (h *Holder) PrintStatistics(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d: {\n%s}\n", h.selfID, h.stats.String())
	return err
}

// Clone returns an independent copy of h: a value-copy of every mutable
// field with a fresh, unshared lock. Mutating the clone never affects
// the original and vice versa. Clone acquires h's lock for the duration
// of the copy.
func (h *Holder) Clone() *Holder {
	h.mu.Lock()
	defer h.mu.Unlock()

	cp := &Holder{
		selfID:              h.selfID,
		cfg:                 h.cfg,
		peers:               append([]PeerID(nil), h.peers...),
		rumors:              make(map[ID]*StateMachine, len(h.rumors)),
		peersInCurrentRound: make(map[PeerID]struct{}, len(h.peersInCurrentRound)),
		stats:               h.stats.clone(),
		nextMemberCB:        h.nextMemberCB,
	}
	for rid, sm := range h.rumors {
		cp.rumors[rid] = sm.clone()
	}
	for p := range h.peersInCurrentRound {
		cp.peersInCurrentRound[p] = struct{}{}
	}
	return cp
}

// clone deep-copies a StateMachine, including its peer-in-B set.
func (s *StateMachine) clone() *StateMachine {
	cp := &StateMachine{
		cfg:           s.cfg,
		phase:         s.phase,
		age:           s.age,
		roundsInB:     s.roundsInB,
		roundsInC:     s.roundsInC,
		peersInStateB: make(map[PeerID]struct{}, len(s.peersInStateB)),
	}
	for p := range s.peersInStateB {
		cp.peersInStateB[p] = struct{}{}
	}
	return cp
}

// Process-wide PRNG for peer selection, seeded once from a
// non-deterministic source on first use and guarded by a mutex for
// concurrent draws, per spec.md's concurrency model. Tests inject
// determinism via WithNextMemberCB instead of relying on this.
var (
	prngOnce sync.Once
	prngMu   sync.Mutex
	prng     *rand.Rand
)

func seedPRNG() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return time.Now().UnixNano()
}

func choosePeer(peers []PeerID) PeerID {
	prngOnce.Do(func() {
		prng = rand.New(rand.NewSource(seedPRNG()))
	})
	prngMu.Lock()
	defer prngMu.Unlock()
	return peers[prng.Intn(len(peers))]
}
