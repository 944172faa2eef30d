// Package ledger maintains the append-only, hash-linked record of accepted
// cleanup photos. Each accepted photo yields exactly one entry; duplicate
// submissions are detected by content fingerprint and never re-appended.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Sentinel values for the genesis entry. The genesis entry is synthesized
// when the ledger is first initialized and is never a duplicate-detection
// target (real fingerprints are 64 hex characters).
const (
	GenesisFingerprint    = "genesis"
	GenesisPreviousDigest = "0"
)

// Entry is a single immutable record in the provenance chain.
type Entry struct {
	// Sequence is the position in the chain, starting at 0 for genesis.
	Sequence int64 `json:"sequence"`
	// CapturedAt is the ledger-side creation time (UTC), not the photo's
	// capture time. Truncated to microseconds so a Postgres round trip
	// reproduces the digested value exactly.
	CapturedAt time.Time `json:"captured_at"`
	// ContentFingerprint identifies the accepted image content.
	ContentFingerprint string `json:"content_fingerprint"`
	// EntryDigest binds Sequence, CapturedAt, ContentFingerprint and
	// PreviousDigest. Recomputing it from stored fields must reproduce
	// the stored value.
	EntryDigest string `json:"entry_digest"`
	// PreviousDigest is the EntryDigest of the entry at Sequence-1, or
	// GenesisPreviousDigest for genesis.
	PreviousDigest string `json:"previous_digest"`
}

// ComputeEntryDigest derives the tamper-evidence digest for an entry.
// The encoding is the decimal sequence, the RFC3339Nano UTC timestamp and
// the two hex digests concatenated, hashed with SHA-256.
func ComputeEntryDigest(sequence int64, capturedAt time.Time, fingerprint, previousDigest string) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(sequence, 10)))
	h.Write([]byte(capturedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(fingerprint))
	h.Write([]byte(previousDigest))
	return hex.EncodeToString(h.Sum(nil))
}

// newEntry constructs a chain entry following prev, digesting all fields.
func newEntry(prev Entry, fingerprint string, at time.Time) Entry {
	at = at.UTC().Truncate(time.Microsecond)
	e := Entry{
		Sequence:           prev.Sequence + 1,
		CapturedAt:         at,
		ContentFingerprint: fingerprint,
		PreviousDigest:     prev.EntryDigest,
	}
	e.EntryDigest = ComputeEntryDigest(e.Sequence, e.CapturedAt, e.ContentFingerprint, e.PreviousDigest)
	return e
}

// newGenesisEntry synthesizes the sentinel first entry.
func newGenesisEntry(at time.Time) Entry {
	at = at.UTC().Truncate(time.Microsecond)
	e := Entry{
		Sequence:           0,
		CapturedAt:         at,
		ContentFingerprint: GenesisFingerprint,
		PreviousDigest:     GenesisPreviousDigest,
	}
	e.EntryDigest = ComputeEntryDigest(e.Sequence, e.CapturedAt, e.ContentFingerprint, e.PreviousDigest)
	return e
}

// Fingerprint computes the content fingerprint for canonicalized image
// bytes and the photo's original capture timestamp (empty when the photo
// carries none). Binding the timestamp means two pixel-identical photos
// taken at different moments do not collide.
func Fingerprint(canonical []byte, capturedAt string) string {
	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte(capturedAt))
	return hex.EncodeToString(h.Sum(nil))
}
