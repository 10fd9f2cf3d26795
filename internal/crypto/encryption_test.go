package crypto

import "testing"

func TestSnapshotCipher_SealOpenRoundTrip(t *testing.T) {
	c := NewSnapshotCipher("hunter2", []byte("saltsaltsaltsalt"))

	plaintext := []byte("snapshot payload")
	sealed, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestSnapshotCipher_OpenRejectsShortCiphertext(t *testing.T) {
	c := NewSnapshotCipher("hunter2", []byte("saltsaltsaltsalt"))
	if _, err := c.Open([]byte("short")); err == nil {
		t.Fatalf("expected error for ciphertext shorter than nonce size")
	}
}

func TestNewSnapshotCipher_DeterministicForSamePassphraseAndSalt(t *testing.T) {
	salt := []byte("saltsaltsaltsalt")
	c1 := NewSnapshotCipher("hunter2", salt)
	c2 := NewSnapshotCipher("hunter2", salt)

	sealed, err := c1.Seal([]byte("x"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := c2.Open(sealed); err != nil {
		t.Fatalf("expected c2 to derive the same key as c1 and decrypt, got: %v", err)
	}
}

func TestSnapshotCipher_OpenRejectsWrongPassphrase(t *testing.T) {
	salt := []byte("saltsaltsaltsalt")
	c1 := NewSnapshotCipher("correct", salt)
	c2 := NewSnapshotCipher("incorrect", salt)

	sealed, err := c1.Seal([]byte("snapshot payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := c2.Open(sealed); err == nil {
		t.Fatalf("expected decryption failure under a different passphrase-derived key")
	}
}

func TestSnapshotCipher_SealProducesDistinctCiphertextsPerCall(t *testing.T) {
	c := NewSnapshotCipher("hunter2", []byte("saltsaltsaltsalt"))
	a, _ := c.Seal([]byte("same plaintext"))
	b, _ := c.Seal([]byte("same plaintext"))
	if string(a) == string(b) {
		t.Fatalf("expected distinct ciphertexts across calls due to random nonces")
	}
}
