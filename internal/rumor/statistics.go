package rumor

import (
	"fmt"
	"sort"
	"strings"
)

// StatisticKey is a closed enumeration of the counters a Holder tracks.
type StatisticKey int

const (
	NumPeers StatisticKey = iota
	NumMessagesReceived
	Rounds
	NumPushMessages
	NumEmptyPushMessages
	NumPullMessages
	NumEmptyPullMessages
)

// allStatisticKeys enumerates every key, in a fixed order, for iteration
// and stringification.
var allStatisticKeys = []StatisticKey{
	NumPeers,
	NumMessagesReceived,
	Rounds,
	NumPushMessages,
	NumEmptyPushMessages,
	NumPullMessages,
	NumEmptyPullMessages,
}

func (k StatisticKey) String() string {
	switch k {
	case NumPeers:
		return "NumPeers"
	case NumMessagesReceived:
		return "NumMessagesReceived"
	case Rounds:
		return "Rounds"
	case NumPushMessages:
		return "NumPushMessages"
	case NumEmptyPushMessages:
		return "NumEmptyPushMessages"
	case NumPullMessages:
		return "NumPullMessages"
	case NumEmptyPullMessages:
		return "NumEmptyPullMessages"
	default:
		return fmt.Sprintf("StatisticKey(%d)", int(k))
	}
}

// Statistics is a mapping from StatisticKey to an accumulated value.
// It is not internally synchronized; Holder guards all mutation with
// its own lock, and read access is documented as quiescent-only, the
// same contract spec.md gives Holder's own read accessors.
type Statistics struct {
	values map[StatisticKey]float64
}

// NewStatistics returns an empty registry.
func NewStatistics() *Statistics {
	return &Statistics{values: make(map[StatisticKey]float64)}
}

// Increase adds value to key's accumulated total, creating the entry at
// value if it did not already exist.
func (s *Statistics) Increase(key StatisticKey, value float64) {
	s.values[key] += value
}

// Value returns the current accumulated value for key (zero if unset).
func (s *Statistics) Value(key StatisticKey) float64 {
	return s.values[key]
}

// Snapshot returns a copy of the full registry, keyed by name, suitable
// for serialization or metrics export.
func (s *Statistics) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(allStatisticKeys))
	for _, k := range allStatisticKeys {
		out[k.String()] = s.values[k]
	}
	return out
}

// clone returns a deep copy, used by Holder's copy semantics.
func (s *Statistics) clone() *Statistics {
	cp := NewStatistics()
	for k, v := range s.values {
		cp.values[k] = v
	}
	return cp
}

// String renders the registry as the fixed enum-ordered report the
// teacher's own printStatistics produces.
func (s *Statistics) String() string {
	var b strings.Builder
	keys := make([]StatisticKey, len(allStatisticKeys))
	copy(keys, allStatisticKeys)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %g\n", k, s.values[k])
	}
	return b.String()
}
