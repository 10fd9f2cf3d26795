package overlay

import (
	"encoding/json"
	"fmt"

	rumorcrypto "rumorcore/internal/crypto"
)

const snapshotKey = "rumorcore/snapshot"

// RumorSnapshotEntry is the persisted view of one rumor, matching
// rumor.RumorSnapshot's fields without importing internal/rumor — the
// overlay package stays a generic illustrative collaborator, not a
// rumor-spreading-aware one.
type RumorSnapshotEntry struct {
	ID    int    `json:"id"`
	Phase string `json:"phase"`
	Age   int    `json:"age"`
}

// Snapshot is the advisory, encrypted-at-rest payload internal/node
// writes periodically: enough to warm-start a restarted node's rumor
// map without waiting to re-learn everything from peers. Losing it is
// never fatal — a node missing its snapshot just rebuilds from gossip.
type Snapshot struct {
	SelfID int                   `json:"self_id"`
	Rumors []RumorSnapshotEntry  `json:"rumors"`
	Stats  map[string]float64    `json:"stats"`
}

// Snapshotter periodically persists a Snapshot through a TempStore,
// encrypting the serialized payload with AES-256-GCM under a key
// derived via PBKDF2, demonstrating the teacher's at-rest encryption
// idiom (internal/crypto/encryption.go) even though RSC itself never
// encrypts anything.
type Snapshotter struct {
	store  *TempStore
	cipher *rumorcrypto.SnapshotCipher
}

// NewSnapshotter derives an encryption key from passphrase and salt and
// binds it to store.
func NewSnapshotter(store *TempStore, passphrase string, salt []byte) *Snapshotter {
	return &Snapshotter{store: store, cipher: rumorcrypto.NewSnapshotCipher(passphrase, salt)}
}

// Save encrypts and writes snap, then commits the overlay to the
// parent store.
func (s *Snapshotter) Save(snap Snapshot) error {
	plain, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("overlay: marshal snapshot: %w", err)
	}

	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return fmt.Errorf("overlay: encrypt snapshot: %w", err)
	}

	s.store.Put(snapshotKey, sealed)
	if err := s.store.Commit(); err != nil {
		return fmt.Errorf("overlay: commit snapshot: %w", err)
	}
	return nil
}

// Load reads and decrypts the most recent snapshot, returning
// (Snapshot{}, false, nil) if none exists.
func (s *Snapshotter) Load() (Snapshot, bool, error) {
	sealed, ok, err := s.store.Get(snapshotKey)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("overlay: read snapshot: %w", err)
	}
	if !ok {
		return Snapshot{}, false, nil
	}

	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("overlay: decrypt snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("overlay: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
