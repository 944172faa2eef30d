package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownProject is returned when entries are requested for a project
// this ledger does not track.
var ErrUnknownProject = errors.New("unknown project")

// DefaultProject is the project name used when none is configured.
const DefaultProject = "takachain"

// TamperError reports the first chain entry whose stored fields no longer
// reproduce the stored digest or whose link to its predecessor is broken.
// Trust in the reported entry and every entry after it is void.
type TamperError struct {
	Sequence int64
	Reason   string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("ledger tampered at sequence %d: %s", e.Sequence, e.Reason)
}

// Canonicalizer normalizes raw image bytes to a fixed resolution and color
// form before fingerprinting, so re-encoding noise does not change the
// fingerprint.
type Canonicalizer func(image []byte) ([]byte, error)

// Ledger owns exclusive write access to a hash-linked chain of accepted
// photo records. Submit is serialized by a single-writer lock; reads may
// run concurrently with an in-flight append because the store only makes
// fully-constructed entries visible.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	head    Entry
	canon   Canonicalizer
	project string
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithProject sets the project name served by EntriesForProject.
func WithProject(name string) Option {
	return func(l *Ledger) { l.project = name }
}

// WithClock overrides the entry timestamp source. For tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New initializes a ledger over the given store. If the store is empty a
// genesis entry is synthesized and persisted; otherwise the latest entry
// is loaded as the chain head.
func New(ctx context.Context, store Store, canon Canonicalizer, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if canon == nil {
		return nil, errors.New("canonicalizer is required")
	}

	l := &Ledger{
		store:   store,
		canon:   canon,
		project: DefaultProject,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	head, err := store.Latest(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		genesis := newGenesisEntry(l.now())
		if err := store.Append(ctx, genesis); err != nil {
			return nil, fmt.Errorf("persist genesis entry: %w", err)
		}
		l.head = genesis
	case err != nil:
		return nil, fmt.Errorf("load chain head: %w", err)
	default:
		l.head = head
	}

	return l, nil
}

// Fingerprint computes the content fingerprint for an image: canonical
// bytes concatenated with the photo's original capture timestamp (empty
// string when absent), hashed with SHA-256. A canonicalization failure
// means the input is not a decodable image.
func (l *Ledger) Fingerprint(image []byte, capturedAt string) (string, error) {
	canonical, err := l.canon(image)
	if err != nil {
		return "", err
	}
	return Fingerprint(canonical, capturedAt), nil
}

// Submit records an authentic photo. It computes the content fingerprint,
// reports a duplicate without mutating state if the fingerprint is already
// chained, and otherwise appends the next entry. The duplicate check and
// append run under a single-writer lock; the store's uniqueness constraint
// is the backstop for concurrent writers outside this process.
//
// A persistence failure leaves no partial entry and the call is safe to
// retry: the fingerprint is deterministic and the failed write never
// became visible.
func (l *Ledger) Submit(ctx context.Context, image []byte, capturedAt string) (isDuplicate bool, fingerprint string, err error) {
	fingerprint, err = l.Fingerprint(image, capturedAt)
	if err != nil {
		return false, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = l.store.ByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		return true, fingerprint, nil
	case !errors.Is(err, ErrNotFound):
		return false, fingerprint, fmt.Errorf("duplicate lookup: %w", err)
	}

	entry := newEntry(l.head, fingerprint, l.now())
	if err := l.store.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateFingerprint) {
			// Another writer chained the same content first.
			return true, fingerprint, nil
		}
		return false, fingerprint, fmt.Errorf("append entry: %w", err)
	}
	l.head = entry
	return false, fingerprint, nil
}

// EntriesForProject returns the full chain in ascending sequence order for
// the named project.
func (l *Ledger) EntriesForProject(ctx context.Context, project string) ([]Entry, error) {
	if project != l.project {
		return nil, ErrUnknownProject
	}
	return l.store.List(ctx)
}

// Project returns the project name this ledger serves.
func (l *Ledger) Project() string {
	return l.project
}

// Verify audits the whole chain: sequences must be contiguous from 0,
// every entry's digest must recompute from its stored fields, and every
// non-genesis entry must link to its predecessor's digest. The first
// violation is returned as a *TamperError; it is reported, never repaired.
func (l *Ledger) Verify(ctx context.Context) error {
	entries, err := l.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	for i, e := range entries {
		if e.Sequence != int64(i) {
			return &TamperError{Sequence: e.Sequence, Reason: fmt.Sprintf("sequence gap: entry at position %d", i)}
		}
		want := ComputeEntryDigest(e.Sequence, e.CapturedAt, e.ContentFingerprint, e.PreviousDigest)
		if e.EntryDigest != want {
			return &TamperError{Sequence: e.Sequence, Reason: "entry digest does not recompute from stored fields"}
		}
		if i == 0 {
			if e.PreviousDigest != GenesisPreviousDigest {
				return &TamperError{Sequence: e.Sequence, Reason: "genesis previous digest is not the sentinel"}
			}
			continue
		}
		if e.PreviousDigest != entries[i-1].EntryDigest {
			return &TamperError{Sequence: e.Sequence, Reason: "previous digest does not match predecessor"}
		}
	}

	return nil
}
