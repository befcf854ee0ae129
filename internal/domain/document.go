package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// BondDocument is an uploaded bond certificate awaiting verification. The
// payload is the identity of the document; it is owned by a single in-flight
// submission and discarded once analysis completes.
type BondDocument struct {
	Filename string
	Payload  []byte
}

// Empty reports whether the document carries no payload.
func (d BondDocument) Empty() bool {
	return len(d.Payload) == 0
}

// ContentHash returns the hex-encoded SHA-256 digest of the payload. The hash
// anchors the minted asset record to the exact bytes that were verified.
func (d BondDocument) ContentHash() string {
	sum := sha256.Sum256(d.Payload)
	return hex.EncodeToString(sum[:])
}
