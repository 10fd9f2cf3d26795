package rumor

import "fmt"

// Phase is a rumor's lifecycle stage. Phases only move forward, in the
// order New < B < C < Old.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseB
	PhaseC
	PhaseOld
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "NEW"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	case PhaseOld:
		return "OLD"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// StateMachine tracks one rumor's phase and age on a single node.
// It is not safe for concurrent use on its own; callers (Holder) must
// serialize access externally.
type StateMachine struct {
	cfg           NetworkConfig
	phase         Phase
	age           int
	roundsInB     int
	roundsInC     int
	peersInStateB map[PeerID]struct{}
}

// NewStateMachine creates a rumor freshly injected on the local node:
// phase NEW, age 0.
func NewStateMachine(cfg NetworkConfig) *StateMachine {
	return &StateMachine{
		cfg:           cfg,
		phase:         PhaseNew,
		peersInStateB: make(map[PeerID]struct{}),
	}
}

// NewStateMachineFromPeer creates a rumor's state as learned from a peer
// that already knows it: the rumor enters phase B directly, at the
// peer's reported age, and that peer is recorded as known-B.
func NewStateMachineFromPeer(cfg NetworkConfig, fromPeer PeerID, theirAge int) *StateMachine {
	sm := &StateMachine{
		cfg:           cfg,
		phase:         PhaseB,
		age:           theirAge,
		peersInStateB: make(map[PeerID]struct{}),
	}
	sm.peersInStateB[fromPeer] = struct{}{}
	return sm
}

// RumorReceived records that fromPeer told us about this rumor again,
// reporting theirAge as their view of its age. If theirAge indicates the
// peer is still in phase B (their_age < MaxRoundsInB), fromPeer is added
// to the known-B set. The local age is never touched here: age is owned
// solely by AdvanceRound's round counter.
func (s *StateMachine) RumorReceived(fromPeer PeerID, theirAge int) {
	if theirAge < s.cfg.MaxRoundsInB() {
		s.peersInStateB[fromPeer] = struct{}{}
	}
}

// epidemicThresholdMet implements the canonical push-pull termination
// rule: once at least half of the network (NetworkSize/2, rounded down
// and floored at 1) is already known to hold the rumor in phase B,
// further pushing has diminishing returns and the
// rumor can move into its silent confirmation phase. peersThisRound are
// the peers that contacted us this round (see Holder.AdvanceRound) and
// are folded into the count for this check only, without being
// persisted into peersInStateB — they are evidence of contact, not
// confirmed knowledge of this particular rumor.
func (s *StateMachine) epidemicThresholdMet(peersThisRound map[PeerID]struct{}) bool {
	threshold := s.cfg.NetworkSize() / 2
	if threshold < 1 {
		threshold = 1
	}
	if len(s.peersInStateB) >= threshold {
		return true
	}
	seen := len(s.peersInStateB)
	for p := range peersThisRound {
		if _, ok := s.peersInStateB[p]; !ok {
			seen++
		}
	}
	return seen >= threshold
}

// AdvanceRound is called once per round by the owning Holder, which
// passes the set of peers that contacted us this round. Phase
// transitions cascade within a single call: a rumor can go from NEW all
// the way to OLD in one round if every threshold is already satisfied.
// age always increments, exactly once, regardless of how many phase
// transitions occurred.
func (s *StateMachine) AdvanceRound(peersThisRound map[PeerID]struct{}) {
	if s.phase == PhaseNew {
		s.phase = PhaseB
	}
	if s.phase == PhaseB {
		s.roundsInB++
		if s.roundsInB >= s.cfg.MaxRoundsInB() || s.epidemicThresholdMet(peersThisRound) {
			s.phase = PhaseC
		}
	}
	if s.phase == PhaseC {
		s.roundsInC++
		if s.roundsInC >= s.cfg.MaxRoundsInC() {
			s.phase = PhaseOld
		}
	}
	s.age++
}

// Age is the rumor's round counter on this node.
func (s *StateMachine) Age() int { return s.age }

// Phase is the rumor's current lifecycle stage.
func (s *StateMachine) Phase() Phase { return s.phase }

// IsOld reports whether the rumor has terminated.
func (s *StateMachine) IsOld() bool { return s.phase == PhaseOld }
