package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rumorcore/internal/rumor"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// TestTwoNodeConvergence is the Go equivalent of the teacher's
// internal/cluster/integration_test.go: two real nodes, real HTTP
// transports, real tickers (sped up), asserting a locally injected
// rumor reaches the peer within NetworkConfig.MaxRoundsTotal() rounds
// plus a ten-round slack for scheduling and HTTP latency.
func TestTwoNodeConvergence(t *testing.T) {
	addrA := freeAddr(t)
	addrB := freeAddr(t)

	nodeA, err := New(Config{
		SelfID:        1,
		BindAddr:      addrA,
		Peers:         []rumor.PeerID{1, 2},
		Addresses:     map[rumor.PeerID]string{2: addrB},
		RoundInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	nodeB, err := New(Config{
		SelfID:        2,
		BindAddr:      addrB,
		Peers:         []rumor.PeerID{1, 2},
		Addresses:     map[rumor.PeerID]string{1: addrA},
		RoundInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go nodeA.Start(ctx)
	go nodeB.Start(ctx)

	time.Sleep(50 * time.Millisecond) // let both listeners bind

	nodeA.Holder().AddRumor(123)

	cfg := nodeA.Holder().NetworkConfig()
	deadline := time.Now().Add(time.Duration(cfg.MaxRoundsTotal()+10) * 20 * time.Millisecond)

	converged := false
	for time.Now().Before(deadline) {
		if nodeB.Holder().RumorExists(123) {
			converged = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.True(t, converged, "node B should have learned rumor 123 via real HTTP gossip within the round budget")
}
