// Package node ties a rumor.Holder to a transport and a tick source
// into a runnable process: the concrete "external transport" and
// "external ticker" that spec.md describes only as collaborators of
// the core engine.
package node

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"rumorcore/internal/logging"
	"rumorcore/internal/membership"
	"rumorcore/internal/metrics"
	"rumorcore/internal/overlay"
	"rumorcore/internal/rumor"
	"rumorcore/internal/transport"
)

// TransportKind selects which transport.Transport implementation New
// constructs.
type TransportKind string

const (
	TransportHTTP TransportKind = "http"
	TransportNATS TransportKind = "nats"
)

// Config collects everything needed to run a Node.
type Config struct {
	SelfID        rumor.PeerID
	BindAddr      string // gossip transport address (TransportHTTP)
	MetricsAddr   string // HTTP API (/v1/stats, /v1/rumors, /v1/bootstrap, /healthz) + /metrics address
	Peers         []rumor.PeerID
	Addresses     map[rumor.PeerID]string
	ClusterSecret string
	RoundInterval time.Duration
	SnapshotEvery time.Duration
	Snapshotter   *overlay.Snapshotter // optional
	Registry      *membership.Registry

	Transport TransportKind // defaults to TransportHTTP
	NATSURL   string        // used when Transport == TransportNATS
}

// Node owns a rumor.Holder, a transport.Transport, a round ticker and an
// optional overlay snapshotter, and runs its loops as a single cancelable
// group via golang.org/x/sync/errgroup, grounded on Chrysalis/go-services
// and ruvnet-alienator's use of the same package.
type Node struct {
	cfg       Config
	holder    *rumor.Holder
	transport transport.Transport
	bridge    *metrics.Bridge
	reg       *prometheus.Registry
}

// New constructs a Node. The Holder's membership set is fixed at this
// point and never mutated afterward, per spec's no-dynamic-membership
// rule. If cfg.Snapshotter is set, New attempts to warm-start the
// Holder's rumor map from the most recently saved snapshot before the
// node starts taking live traffic; a missing or unreadable snapshot is
// not an error, since the snapshot store is advisory (see
// internal/overlay.Snapshotter).
func New(cfg Config) (*Node, error) {
	holder, err := rumor.NewHolder(cfg.Peers, cfg.SelfID)
	if err != nil {
		return nil, err
	}

	if cfg.Snapshotter != nil {
		warmStart(holder, cfg.Snapshotter)
	}

	var tp transport.Transport
	switch cfg.Transport {
	case TransportNATS:
		tp = transport.NewNATSTransport(cfg.SelfID, cfg.NATSURL, cfg.ClusterSecret)
	default:
		addresses := transport.StaticAddressBook(cfg.Addresses)
		tp = transport.NewHTTPTransport(cfg.SelfID, cfg.BindAddr, addresses, cfg.ClusterSecret)
	}

	reg := prometheus.NewRegistry()
	bridge := metrics.NewBridge(reg, holder.Statistics())

	return &Node{cfg: cfg, holder: holder, transport: tp, bridge: bridge, reg: reg}, nil
}

// warmStart seeds holder with the rumor ids recovered from snapper's most
// recent snapshot. Each recovered rumor re-enters the Holder as freshly
// NEW (spec.md gives no wire format for resuming a state machine
// mid-phase); the point is that the node already knows these ids exist
// instead of waiting to relearn them from peer gossip.
func warmStart(holder *rumor.Holder, snapper *overlay.Snapshotter) {
	snap, ok, err := snapper.Load()
	if err != nil {
		logging.Warnw("snapshot recovery failed, starting with an empty rumor map", "err", err)
		return
	}
	if !ok {
		return
	}

	for _, r := range snap.Rumors {
		holder.AddRumor(rumor.ID(r.ID))
	}
	logging.Infow("recovered rumor map from snapshot", "rumors", len(snap.Rumors), "stats", snap.Stats)
}

// Holder exposes the underlying engine for direct inspection (used by
// pkg/client-facing HTTP handlers and tests).
func (n *Node) Holder() *rumor.Holder { return n.holder }

// Start starts the transport, then runs the round-advance loop, the
// optional snapshot loop, and the metrics/API HTTP server until ctx is
// canceled or one of those three returns an error. The transport is not
// part of that group: an error from its listener is only logged by the
// transport, and canceling ctx does not shut it down (Stop does).
func (n *Node) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	dispatch := func(msg rumor.Message, from rumor.PeerID) (rumor.PeerID, []rumor.Message) {
		start := time.Now()
		to, replies := n.holder.ReceivedMessage(msg, from)
		n.bridge.ObserveRequest("POST", "/v1/gossip/message", "ok", time.Since(start).Seconds())
		return to, replies
	}
	if err := n.transport.Start(ctx, dispatch); err != nil {
		return err
	}

	g.Go(func() error { return n.runRoundLoop(ctx) })

	if n.cfg.Snapshotter != nil && n.cfg.SnapshotEvery > 0 {
		g.Go(func() error { return n.runSnapshotLoop(ctx) })
	}

	if n.cfg.MetricsAddr != "" {
		g.Go(func() error { return n.runAPIServer(ctx) })
	}

	return g.Wait()
}

// Stop shuts the transport down.
func (n *Node) Stop() error {
	return n.transport.Stop()
}

func (n *Node) runRoundLoop(ctx context.Context) error {
	interval := n.cfg.RoundInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			to, pushes := n.holder.AdvanceRound()
			if to == rumor.NoPeer {
				continue
			}
			for _, msg := range pushes {
				if err := n.transport.Send(ctx, to, msg); err != nil {
					logging.Warnw("failed to send round push", "to", to, "err", err)
				}
			}
			n.bridge.Refresh()
			n.bridge.SetRumorsTracked(len(n.holder.RumorsMap()))
		}
	}
}

func (n *Node) runSnapshotLoop(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.SnapshotEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := overlay.Snapshot{
				SelfID: int(n.cfg.SelfID),
				Stats:  n.holder.Statistics().Snapshot(),
			}
			for id, s := range n.holder.RumorsMap() {
				snap.Rumors = append(snap.Rumors, overlay.RumorSnapshotEntry{
					ID:    int(id),
					Phase: s.Phase.String(),
					Age:   s.Age,
				})
			}
			if err := n.cfg.Snapshotter.Save(snap); err != nil {
				logging.Warnw("snapshot save failed", "err", err)
			}
		}
	}
}

func (n *Node) runAPIServer(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/v1/stats", n.bridge.InstrumentHandler("/v1/stats", transport.StatsHandler(n.holder.Statistics()))).Methods(http.MethodGet)
	router.HandleFunc("/v1/rumors", n.bridge.InstrumentHandler("/v1/rumors", transport.RumorsHandler(n.holder))).Methods(http.MethodGet)
	router.HandleFunc("/healthz", n.bridge.InstrumentHandler("/healthz", transport.HealthzHandler)).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler(n.reg)).Methods(http.MethodGet)
	if n.cfg.Registry != nil {
		router.HandleFunc("/v1/bootstrap", n.bridge.InstrumentHandler("/v1/bootstrap", n.cfg.Registry.HTTPHandler)).Methods(http.MethodPost)
	}

	srv := &http.Server{Addr: n.cfg.MetricsAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Infow("api server starting", "addr", n.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
