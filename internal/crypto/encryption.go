// Package crypto provides the at-rest encryption internal/overlay's
// Snapshotter needs for its periodic, advisory snapshot writes.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// iterations is the PBKDF2 work factor for deriving a SnapshotCipher's
// key from the passphrase a node is started with.
const iterations = 100000

// keySize is AES-256.
const keySize = 32

// SnapshotCipher seals and opens snapshot payloads under a single key
// derived once from a passphrase and a salt — salt here is the
// per-node string internal/overlay's callers derive from the node's own
// id (see overlay.NewSnapshotter), not a random value persisted
// alongside the ciphertext.
type SnapshotCipher struct {
	key []byte
}

// NewSnapshotCipher derives key material via PBKDF2-HMAC-SHA256.
func NewSnapshotCipher(passphrase string, salt []byte) *SnapshotCipher {
	return &SnapshotCipher{key: pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)}
}

// Seal encrypts plaintext with AES-256-GCM, prefixing the output with a
// freshly generated nonce.
func (c *SnapshotCipher) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: read nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. It rejects ciphertexts shorter than one nonce.
func (c *SnapshotCipher) Open(ciphertext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("crypto: ciphertext shorter than nonce size")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt snapshot: %w", err)
	}
	return plaintext, nil
}

func (c *SnapshotCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return gcm, nil
}
