package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rumorcore/internal/logging"
	"rumorcore/internal/membership"
	"rumorcore/internal/node"
	"rumorcore/internal/overlay"
	"rumorcore/internal/rumor"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveBindAddr parses addr's port and searches forward from it via
// membership.AllocatePort, returning addr with the first free port found
// in its place.
func resolveBindAddr(addr string, maxTries int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parse bind address %q: %w", addr, err)
	}
	basePort, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parse port in %q: %w", addr, err)
	}

	port, err := membership.AllocatePort(basePort, maxTries)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var (
	selfID         int
	bindAddr       string
	autoPort       bool
	portRetries    int
	metricsAddr    string
	seeds          string
	clusterSecret  string
	roundInterval  time.Duration
	snapshotEvery  time.Duration
	snapshotDir    string
	snapshotSecret string
	logLevel       string
	transportKind  string
	natsURL        string
)

var rootCmd = &cobra.Command{
	Use:   "rumor-node",
	Short: "Runs a single randomized push-pull gossip node",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVar(&selfID, "id", envIntOr("RUMORCORE_ID", 1), "this node's peer id (env RUMORCORE_ID)")
	rootCmd.Flags().StringVar(&bindAddr, "bind", envOr("RUMORCORE_BIND", "127.0.0.1:8080"), "gossip transport bind address (env RUMORCORE_BIND)")
	rootCmd.Flags().BoolVar(&autoPort, "auto-port", false, "if set, search forward from --bind's port for a free one instead of requiring the exact port")
	rootCmd.Flags().IntVar(&portRetries, "auto-port-retries", 16, "number of ports to try when --auto-port is set")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-bind", envOr("RUMORCORE_METRICS_BIND", "127.0.0.1:9090"), "HTTP API (stats, rumors, bootstrap) and metrics bind address (env RUMORCORE_METRICS_BIND)")
	rootCmd.Flags().StringVar(&transportKind, "transport", envOr("RUMORCORE_TRANSPORT", "http"), "gossip transport: http or nats (env RUMORCORE_TRANSPORT)")
	rootCmd.Flags().StringVar(&natsURL, "nats-url", envOr("RUMORCORE_NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL, used when --transport=nats (env RUMORCORE_NATS_URL)")
	rootCmd.Flags().StringVar(&seeds, "seeds", envOr("RUMORCORE_SEEDS", ""), "comma-separated seed node addresses for bootstrap (env RUMORCORE_SEEDS)")
	rootCmd.Flags().StringVar(&clusterSecret, "cluster-secret", envOr("RUMORCORE_CLUSTER_SECRET", ""), "HMAC secret for transport envelope signing (env RUMORCORE_CLUSTER_SECRET)")
	rootCmd.Flags().DurationVar(&roundInterval, "round-interval", time.Second, "interval between gossip rounds")
	rootCmd.Flags().DurationVar(&snapshotEvery, "snapshot-interval", 0, "interval between overlay snapshots (0 disables)")
	rootCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", envOr("RUMORCORE_SNAPSHOT_DIR", ""), "goleveldb directory for overlay snapshots (env RUMORCORE_SNAPSHOT_DIR)")
	rootCmd.Flags().StringVar(&snapshotSecret, "snapshot-secret", envOr("RUMORCORE_SNAPSHOT_SECRET", ""), "passphrase used to derive the snapshot encryption key")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("RUMORCORE_LOG_LEVEL", "info"), "debug, info, warn, or error")
}

func run(cmd *cobra.Command, args []string) error {
	logging.SetLevel(logLevel)
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	self := rumor.PeerID(selfID)

	if autoPort {
		resolved, err := resolveBindAddr(bindAddr, portRetries)
		if err != nil {
			return fmt.Errorf("resolve bind address: %w", err)
		}
		bindAddr = resolved
	}

	var seedList []string
	if seeds != "" {
		for _, s := range strings.Split(seeds, ",") {
			seedList = append(seedList, strings.TrimSpace(s))
		}
	}

	peers, addrs, err := membership.Discover(ctx, self, bindAddr, seedList)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	peers = append(peers, self)

	cfg := node.Config{
		SelfID:        self,
		BindAddr:      bindAddr,
		MetricsAddr:   metricsAddr,
		Peers:         peers,
		Addresses:     addrs,
		ClusterSecret: clusterSecret,
		RoundInterval: roundInterval,
		SnapshotEvery: snapshotEvery,
		Registry:      membership.NewRegistry(self, bindAddr),
		Transport:     node.TransportKind(transportKind),
		NATSURL:       natsURL,
	}

	if snapshotDir != "" && snapshotEvery > 0 {
		parent, err := overlay.OpenLevelDBStore(snapshotDir)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer parent.Close()
		store := overlay.NewTempStore(parent)
		salt := []byte(fmt.Sprintf("rumorcore-salt-%d", self))
		cfg.Snapshotter = overlay.NewSnapshotter(store, snapshotSecret, salt)
	}

	n, err := node.New(cfg)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	logging.Infow("node starting", "self", self, "bind", bindAddr, "peers", len(peers)-1)
	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("node run: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
