package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"rumorcore/internal/logging"
	"rumorcore/internal/ratelimit"
	"rumorcore/internal/rumor"
)

// HTTPTransport delivers envelopes over HTTP POST to
// "/v1/gossip/message", grounded on the teacher's
// internal/gossip/http_transport.go. If clusterSecret is non-empty,
// every outgoing envelope is HMAC-signed and every inbound envelope is
// verified before dispatch.
type HTTPTransport struct {
	selfID        rumor.PeerID
	selfAddr      string
	addresses     AddressBook
	clusterSecret string
	client        *http.Client
	limiter       *ratelimit.PerIP

	mu     sync.RWMutex
	server *http.Server
}

// NewHTTPTransport constructs a transport bound to self that listens on
// selfAddr and resolves peer addresses via addresses.
func NewHTTPTransport(self rumor.PeerID, selfAddr string, addresses AddressBook, clusterSecret string) *HTTPTransport {
	return &HTTPTransport{
		selfID:        self,
		selfAddr:      selfAddr,
		addresses:     addresses,
		clusterSecret: clusterSecret,
		client:        &http.Client{Timeout: 5 * time.Second},
		limiter:       ratelimit.New(100, 200, 10*time.Minute),
	}
}

// Start binds an HTTP listener on selfAddr and dispatches inbound
// envelopes to handler.
func (t *HTTPTransport) Start(ctx context.Context, handler Dispatcher) error {
	router := mux.NewRouter()
	router.Use(t.limiter.Middleware)
	router.HandleFunc("/v1/gossip/message", t.inboundHandler(handler)).Methods(http.MethodPost)

	srv := &http.Server{Addr: t.selfAddr, Handler: router}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	logging.Infow("http transport starting", "addr", t.selfAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorw("http transport stopped unexpectedly", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the listener.
func (t *HTTPTransport) Stop() error {
	t.mu.RLock()
	srv := t.server
	t.mu.RUnlock()
	t.limiter.Close()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Send delivers msg to peer "to" over HTTP and discards the reply; the
// inbound handler on the remote side re-enters the gossip loop via its
// own outbound Send calls rather than a synchronous response body,
// mirroring the teacher's fire-and-forget Send/Broadcast split.
func (t *HTTPTransport) Send(ctx context.Context, to rumor.PeerID, msg rumor.Message) error {
	addr, ok := t.addresses.Address(to)
	if !ok {
		return fmt.Errorf("transport: no known address for peer %d", to)
	}

	env := NewEnvelope(t.selfID, to, msg)
	if t.clusterSecret != "" {
		signed, err := Sign(env, t.clusterSecret)
		if err != nil {
			return fmt.Errorf("transport: sign envelope: %w", err)
		}
		env = signed
	}

	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}

	url := fmt.Sprintf("http://%s/v1/gossip/message", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: send to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: peer %d rejected envelope with status %d", to, resp.StatusCode)
	}
	return nil
}

func (t *HTTPTransport) inboundHandler(handler Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		if _, err := body.ReadFrom(r.Body); err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		env, err := Unmarshal(body.Bytes())
		if err != nil {
			http.Error(w, "invalid envelope", http.StatusBadRequest)
			return
		}

		if t.clusterSecret != "" {
			ok, err := Verify(env, t.clusterSecret)
			if err != nil || !ok {
				logging.Warnw("rejected envelope with bad signature", "from", env.From)
				http.Error(w, "bad signature", http.StatusForbidden)
				return
			}
		}

		msg, err := env.Message()
		if err != nil {
			http.Error(w, "invalid message", http.StatusBadRequest)
			return
		}

		to, replies := handler(msg, env.From)
		for _, reply := range replies {
			if err := t.Send(r.Context(), to, reply); err != nil {
				logging.Warnw("failed to send reply", "to", to, "err", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}
}

// StatsHandler serves a JSON dump of stats at GET /v1/stats.
func StatsHandler(stats *rumor.Statistics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats.Snapshot())
	}
}

// RumorsHandler serves a JSON dump of rumor ids/phases/ages at
// GET /v1/rumors.
func RumorsHandler(h *rumor.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string]map[string]string)
		for id, snap := range h.RumorsMap() {
			out[strconv.Itoa(int(id))] = map[string]string{
				"phase": snap.Phase.String(),
				"age":   strconv.Itoa(snap.Age),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// HealthzHandler serves a trivial liveness probe at GET /healthz.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
