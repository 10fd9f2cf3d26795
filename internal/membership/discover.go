// Package membership performs the one-shot bootstrap handshake that
// assembles a node's fixed peer set before a rumor.Holder is
// constructed. It never runs again afterward: spec scope excludes
// dynamic membership changes mid-run, so once Discover returns, the
// resulting peer set is handed to rumor.NewHolder and never revisited.
package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rumorcore/internal/logging"
	"rumorcore/internal/rumor"
)

// BootstrapRequest announces a joining node to a seed, grounded on the
// teacher's gossip/bootstrap.go BootstrapRequest.
type BootstrapRequest struct {
	PeerID  rumor.PeerID `json:"peer_id"`
	Address string       `json:"address"`
}

// peerInfo is one entry of a seed's current topology view.
type peerInfo struct {
	PeerID  rumor.PeerID `json:"peer_id"`
	Address string       `json:"address"`
}

// BootstrapResponse carries a seed's known topology back to the joiner.
type BootstrapResponse struct {
	Success bool       `json:"success"`
	Peers   []peerInfo `json:"peers"`
}

// Discover contacts seeds in order and returns the first successful
// topology: the set of peer ids (excluding self) and their transport
// addresses. An empty or unreachable seed list is not an error — the
// node simply becomes the first member of the network, per spec's
// boundary-case handling of N<=1.
func Discover(ctx context.Context, self rumor.PeerID, selfAddr string, seeds []string) ([]rumor.PeerID, map[rumor.PeerID]string, error) {
	req := BootstrapRequest{PeerID: self, Address: selfAddr}

	for _, seed := range seeds {
		resp, err := requestBootstrap(ctx, seed, req)
		if err != nil {
			logging.Warnw("bootstrap attempt failed", "seed", seed, "err", err)
			continue
		}

		peers := make([]rumor.PeerID, 0, len(resp.Peers)+1)
		addrs := make(map[rumor.PeerID]string, len(resp.Peers)+1)
		for _, p := range resp.Peers {
			if p.PeerID == self {
				continue
			}
			peers = append(peers, p.PeerID)
			addrs[p.PeerID] = p.Address
		}

		logging.Infow("bootstrap succeeded", "seed", seed, "peers", len(peers))
		return peers, addrs, nil
	}

	logging.Infow("no seed reachable, starting as first node", "self", self)
	return nil, map[rumor.PeerID]string{}, nil
}

func requestBootstrap(ctx context.Context, seedAddr string, req BootstrapRequest) (*BootstrapResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("membership: marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s/v1/bootstrap", seedAddr)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("membership: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("membership: contact %s: %w", seedAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("membership: seed %s rejected bootstrap with status %d", seedAddr, resp.StatusCode)
	}

	var br BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("membership: decode response: %w", err)
	}
	if !br.Success {
		return nil, fmt.Errorf("membership: seed %s reported failure", seedAddr)
	}
	return &br, nil
}

// Registry is the seed-side counterpart to Discover: it tracks the
// topology view served to joiners and is updated as new bootstrap
// requests arrive. One Registry backs a node's "/v1/bootstrap" handler.
type Registry struct {
	self  peerInfo
	peers map[rumor.PeerID]peerInfo
}

// NewRegistry creates a registry seeded with this node's own identity.
func NewRegistry(self rumor.PeerID, selfAddr string) *Registry {
	return &Registry{
		self:  peerInfo{PeerID: self, Address: selfAddr},
		peers: make(map[rumor.PeerID]peerInfo),
	}
}

// HandleBootstrap records the joining peer and returns the full current
// topology, including this node itself.
func (r *Registry) HandleBootstrap(req BootstrapRequest) BootstrapResponse {
	r.peers[req.PeerID] = peerInfo{PeerID: req.PeerID, Address: req.Address}

	all := make([]peerInfo, 0, len(r.peers)+1)
	all = append(all, r.self)
	for _, p := range r.peers {
		all = append(all, p)
	}
	return BootstrapResponse{Success: true, Peers: all}
}

// HTTPHandler adapts HandleBootstrap to net/http for mounting at
// POST /v1/bootstrap.
func (r *Registry) HTTPHandler(w http.ResponseWriter, req *http.Request) {
	var br BootstrapRequest
	if err := json.NewDecoder(req.Body).Decode(&br); err != nil {
		http.Error(w, "invalid bootstrap request", http.StatusBadRequest)
		return
	}
	resp := r.HandleBootstrap(br)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
