// Package client is a thin HTTP client SDK for a running rumor-node's
// status endpoints, adapted from the teacher's pkg/client/client.go
// (which spoke the REPRAM key/value Put/Get API) to rumorcore's
// stats/rumors/bootstrap surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"rumorcore/internal/membership"
	"rumorcore/internal/rumor"
)

// Client talks to one rumor-node's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client targeting baseURL (e.g. "http://127.0.0.1:9090").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Stats fetches the node's current statistics snapshot from /v1/stats.
func (c *Client) Stats(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	if err := c.getJSON(ctx, "/v1/stats", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// rumorEntry mirrors the JSON shape served by transport.RumorsHandler.
type rumorEntry struct {
	Phase string `json:"phase"`
	Age   string `json:"age"`
}

// RumorInfo is one entry returned by Rumors.
type RumorInfo struct {
	ID    rumor.ID
	Phase string
	Age   int
}

// Rumors fetches the node's currently tracked rumor ids, phases, and
// ages from /v1/rumors.
func (c *Client) Rumors(ctx context.Context) ([]RumorInfo, error) {
	var raw map[string]rumorEntry
	if err := c.getJSON(ctx, "/v1/rumors", &raw); err != nil {
		return nil, err
	}

	out := make([]RumorInfo, 0, len(raw))
	for idStr, entry := range raw {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("client: malformed rumor id %q: %w", idStr, err)
		}
		age, err := strconv.Atoi(entry.Age)
		if err != nil {
			return nil, fmt.Errorf("client: malformed rumor age %q: %w", entry.Age, err)
		}
		out = append(out, RumorInfo{ID: rumor.ID(id), Phase: entry.Phase, Age: age})
	}
	return out, nil
}

// Bootstrap performs the membership discovery handshake against the
// node at baseURL, announcing selfID/selfAddr as the joining peer.
func (c *Client) Bootstrap(ctx context.Context, selfID rumor.PeerID, selfAddr string) (*membership.BootstrapResponse, error) {
	reqBody, err := json.Marshal(membership.BootstrapRequest{PeerID: selfID, Address: selfAddr})
	if err != nil {
		return nil, fmt.Errorf("client: marshal bootstrap request: %w", err)
	}

	url := c.baseURL + "/v1/bootstrap"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("client: bootstrap returned status %d: %s", resp.StatusCode, string(body))
	}

	var out membership.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode bootstrap response: %w", err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client: %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s response: %w", path, err)
	}
	return nil
}
