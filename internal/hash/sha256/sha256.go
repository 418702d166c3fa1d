// Package sha256 provides the phone-number digest used as the dedup key.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex-encoded SHA-256 digests of phone numbers. An optional
// pepper is appended to the phone bytes before hashing. The task builder
// ships the same pepper to the automation agent, so both sides derive
// identical digests and the skip-list keeps matching.
type Hasher struct {
	pepper []byte
}

// New returns a Hasher with the given pepper. Pass "" for unsalted digests.
func New(pepper string) *Hasher {
	return &Hasher{pepper: []byte(pepper)}
}

// Digest returns the 64-character lowercase hex digest for a phone string.
// The mapping is deterministic: the same input always yields the same digest.
func (h *Hasher) Digest(phone string) string {
	d := sha256.New()
	d.Write([]byte(phone))
	d.Write(h.pepper)
	return hex.EncodeToString(d.Sum(nil))
}
