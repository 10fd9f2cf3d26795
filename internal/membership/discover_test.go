package membership

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"rumorcore/internal/rumor"
)

func TestDiscover_AgainstMockSeed(t *testing.T) {
	reg := NewRegistry(1, "127.0.0.1:9001")
	srv := httptest.NewServer(http.HandlerFunc(reg.HTTPHandler))
	defer srv.Close()

	peers, addrs, err := Discover(context.Background(), 2, "127.0.0.1:9002", []string{srv.Listener.Addr().String()})
	require.NoError(t, err)
	require.Contains(t, peers, rumor.PeerID(1))
	require.Equal(t, "127.0.0.1:9001", addrs[1])
}

func TestDiscover_NoSeedsIsNotAnError(t *testing.T) {
	peers, addrs, err := Discover(context.Background(), 1, "127.0.0.1:9001", nil)
	require.NoError(t, err)
	require.Empty(t, peers)
	require.Empty(t, addrs)
}

func TestDiscover_ExcludesSelfFromReturnedPeers(t *testing.T) {
	reg := NewRegistry(1, "127.0.0.1:9001")
	reg.HandleBootstrap(BootstrapRequest{PeerID: 2, Address: "127.0.0.1:9002"})
	srv := httptest.NewServer(http.HandlerFunc(reg.HTTPHandler))
	defer srv.Close()

	peers, _, err := Discover(context.Background(), 1, "127.0.0.1:9001", []string{srv.Listener.Addr().String()})
	require.NoError(t, err)
	require.NotContains(t, peers, rumor.PeerID(1))
}

func TestRegistry_HandleBootstrapAccumulatesPeers(t *testing.T) {
	reg := NewRegistry(1, "127.0.0.1:9001")
	reg.HandleBootstrap(BootstrapRequest{PeerID: 2, Address: "a"})
	resp := reg.HandleBootstrap(BootstrapRequest{PeerID: 3, Address: "b"})

	require.True(t, resp.Success)
	require.Len(t, resp.Peers, 3) // self + 2 + 3
}
