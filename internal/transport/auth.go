package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signBody computes an HMAC-SHA256 signature of body using secret,
// carried from the teacher's gossip/auth.go.
func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyBody checks that signature is a valid HMAC-SHA256 of body.
func verifyBody(secret string, body []byte, signature string) bool {
	expected := signBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign returns a copy of e with Signature set to the HMAC of its
// signing payload under secret. A blank secret signs with an empty key,
// which Verify below treats as "no authentication configured".
func Sign(e Envelope, secret string) (Envelope, error) {
	payload, err := e.signingPayload()
	if err != nil {
		return Envelope{}, err
	}
	e.Signature = signBody(secret, payload)
	return e, nil
}

// Verify reports whether e's Signature matches secret. If secret is
// empty, verification is skipped and Verify always returns true — nodes
// running without a configured cluster secret accept unsigned envelopes,
// matching the teacher's opt-in signing behavior.
func Verify(e Envelope, secret string) (bool, error) {
	if secret == "" {
		return true, nil
	}
	payload, err := e.signingPayload()
	if err != nil {
		return false, err
	}
	return verifyBody(secret, payload, e.Signature), nil
}
