package rumor

import "testing"

func TestNewNetworkConfig_ZeroAndOneNetwork(t *testing.T) {
	for _, n := range []int{0, 1} {
		cfg := NewNetworkConfig(n)
		if cfg.MaxRoundsInB() < 1 || cfg.MaxRoundsInC() < 1 {
			t.Fatalf("network size %d: thresholds must be at least 1, got B=%d C=%d", n, cfg.MaxRoundsInB(), cfg.MaxRoundsInC())
		}
		if cfg.NetworkSize() != n {
			t.Fatalf("expected network size %d, got %d", n, cfg.NetworkSize())
		}
	}
}

func TestNewNetworkConfig_TotalIsSumOfParts(t *testing.T) {
	cfg := NewNetworkConfig(64)
	if cfg.MaxRoundsTotal() != cfg.MaxRoundsInB()+cfg.MaxRoundsInC() {
		t.Fatalf("MaxRoundsTotal = %d, want B(%d) + C(%d)", cfg.MaxRoundsTotal(), cfg.MaxRoundsInB(), cfg.MaxRoundsInC())
	}
}

func TestNewNetworkConfig_GrowsWithNetworkSize(t *testing.T) {
	small := NewNetworkConfig(8)
	large := NewNetworkConfig(1024)
	if large.MaxRoundsInB() < small.MaxRoundsInB() {
		t.Fatalf("expected larger network to need at least as many B rounds: small=%d large=%d", small.MaxRoundsInB(), large.MaxRoundsInB())
	}
	if large.MaxRoundsInC() < small.MaxRoundsInC() {
		t.Fatalf("expected larger network to need at least as many C rounds: small=%d large=%d", small.MaxRoundsInC(), large.MaxRoundsInC())
	}
}

func TestNewNetworkConfig_NegativeClampedToZero(t *testing.T) {
	cfg := NewNetworkConfig(-5)
	if cfg.NetworkSize() != 0 {
		t.Fatalf("expected negative network size to clamp to 0, got %d", cfg.NetworkSize())
	}
}
