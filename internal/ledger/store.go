package ledger

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDuplicateFingerprint is returned by Store.Append when an entry
	// with the same content fingerprint already exists.
	ErrDuplicateFingerprint = errors.New("content fingerprint already recorded")
	// ErrNotFound is returned by lookups that match no entry.
	ErrNotFound = errors.New("ledger entry not found")
)

// Store defines the persistence interface for ledger entries. Append must
// be atomic: on error no partial entry may be visible to any reader.
type Store interface {
	// Append persists a fully-constructed entry. Returns
	// ErrDuplicateFingerprint if the fingerprint is already recorded.
	Append(ctx context.Context, e Entry) error

	// Latest returns the entry with the highest sequence, or ErrNotFound
	// when the store is empty.
	Latest(ctx context.Context) (Entry, error)

	// ByFingerprint returns the entry recording the given fingerprint,
	// or ErrNotFound.
	ByFingerprint(ctx context.Context, fingerprint string) (Entry, error)

	// List returns all entries in ascending sequence order.
	List(ctx context.Context) ([]Entry, error)
}

// MemoryStore is an in-memory implementation of Store. Used for testing
// and development. Thread-safe via RWMutex.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       []Entry
	byFingerprint map[string]int
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byFingerprint: make(map[string]int),
	}
}

// Append persists a new entry, enforcing fingerprint uniqueness.
func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byFingerprint[e.ContentFingerprint]; exists {
		return ErrDuplicateFingerprint
	}
	s.byFingerprint[e.ContentFingerprint] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// Latest returns the most recently appended entry.
func (s *MemoryStore) Latest(ctx context.Context) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return s.entries[len(s.entries)-1], nil
}

// ByFingerprint returns the entry recording the given fingerprint.
func (s *MemoryStore) ByFingerprint(ctx context.Context, fingerprint string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byFingerprint[fingerprint]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return s.entries[i], nil
}

// List returns a copy of all entries in ascending sequence order.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
