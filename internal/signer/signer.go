package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Signer produces the session signature a client must echo on every call.
// The MAC covers the string "session:<id>" under a process-wide secret.
type Signer struct {
	key []byte
}

// New fails closed when the key is missing or too short to carry the
// required entropy.
func New(secret string) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("signer: secret must be at least 16 bytes")
	}
	return &Signer{key: []byte(secret)}, nil
}

// Sign returns the hex HMAC-SHA256 of message.
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares candidateHex against the MAC of message in constant time.
// Any decoding error yields false.
func (s *Signer) Verify(message, candidateHex string) bool {
	candidate, err := hex.DecodeString(candidateHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(message))
	return hmac.Equal(candidate, mac.Sum(nil))
}

// SessionMessage is the canonical signed message for a session id.
func SessionMessage(sessionID string) string {
	return "session:" + sessionID
}
