package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/sketchbook/internal/records"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "sketchbook/snapshot/v1"
	DomainEvent    = "sketchbook/event/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of a serialized sketch. Sketch data
// lists every collection in id order, so equal sketches share a digest.
func Digest(data records.SketchData) (string, error) {
	encoded, err := records.Encode(data)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainSnapshot, []byte(encoded)), nil
}

// EventDigest identifies a journal entry across databases: it covers the
// session, seq, event and outcome kind, so a rewritten entry gets a new
// digest.
func EventDigest(e Entry) string {
	data := fmt.Sprintf("%s\x00%d\x00%s\x00%s", e.SessionID, e.Seq, e.Event.String(), e.Kind)
	return hashWithDomain(DomainEvent, []byte(data))
}
