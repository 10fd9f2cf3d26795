// Package rumor implements the Rumor Spreading Core: a per-node engine
// for randomized push-pull gossip over a fixed membership set.
package rumor

import "math"

// epidemic constants from the "rumor mongering" literature (Karp et al.,
// "Randomized Rumor Spreading"): a rumor needs O(log N) rounds to reach
// near-saturation (state B) and a further O(log N) rounds of silent
// confirmation (state C) before it is safe to call old.
const (
	roundsInBFactor = 3.0
	roundsInCFactor = 3.0
)

// NetworkConfig holds the epidemic thresholds derived from a fixed
// network size. It is immutable once constructed.
type NetworkConfig struct {
	maxRoundsInB    int
	maxRoundsInC    int
	maxRoundsTotal  int
	networkSize     int
}

// NewNetworkConfig derives round thresholds from N, the network size.
// NewHolder passes the size of its deduplicated membership set, which
// counts the local node when the membership lists it. N may be zero.
func NewNetworkConfig(networkSize int) NetworkConfig {
	if networkSize < 0 {
		networkSize = 0
	}

	maxB := ceilLog2Mult(roundsInBFactor, networkSize)
	maxC := ceilLog2Mult(roundsInCFactor, networkSize)

	return NetworkConfig{
		maxRoundsInB:   maxB,
		maxRoundsInC:   maxC,
		maxRoundsTotal: maxB + maxC,
		networkSize:    networkSize,
	}
}

// ceilLog2Mult computes ceil(factor * log2(n)), floored at 1 so that
// every rumor makes forward progress even on a tiny or empty network.
func ceilLog2Mult(factor float64, n int) int {
	if n <= 1 {
		return 1
	}
	v := int(math.Ceil(factor * math.Log2(float64(n))))
	if v < 1 {
		v = 1
	}
	return v
}

// MaxRoundsInB is the round count after which a rumor still in phase B
// is forced into phase C.
func (c NetworkConfig) MaxRoundsInB() int { return c.maxRoundsInB }

// MaxRoundsInC is the round count after which a rumor in phase C is
// declared old.
func (c NetworkConfig) MaxRoundsInC() int { return c.maxRoundsInC }

// MaxRoundsTotal is the hard cap on a rumor's total lifetime (B + C).
func (c NetworkConfig) MaxRoundsTotal() int { return c.maxRoundsTotal }

// NetworkSize is N, the network size the thresholds were derived from.
func (c NetworkConfig) NetworkSize() int { return c.networkSize }
