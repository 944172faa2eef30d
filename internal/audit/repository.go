package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for the submission decision log.
type Repository interface {
	// Record stores a submission decision.
	// Returns the created record.
	Record(entry DecisionEntry) (*DecisionRecord, error)

	// QueryBySubmitter retrieves decisions for a specific submitter, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryBySubmitter(submitter string, limit int) ([]*DecisionRecord, error)

	// QueryByDecision retrieves records with a specific decision code, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByDecision(decision string, limit int) ([]*DecisionRecord, error)

	// AnonymizeIPsBefore coarsens the stored IP address of records created
	// before the cutoff. Returns the number of records changed.
	AnonymizeIPsBefore(cutoff time.Time) (int64, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*DecisionRecord
	// Maintain insertion order for queries
	order []string
}

// NewInMemoryRepository creates a new in-memory decision repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*DecisionRecord),
		order:   make([]string, 0),
	}
}

// Record stores a submission decision.
func (r *InMemoryRepository) Record(entry DecisionEntry) (*DecisionRecord, error) {
	record := &DecisionRecord{
		ID:          uuid.New().String(),
		Submitter:   entry.Submitter,
		Decision:    entry.Decision,
		Fingerprint: entry.Fingerprint,
		CreatedAt:   time.Now().UTC(),
		RequestID:   entry.RequestID,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
	}

	r.mu.Lock()
	r.records[record.ID] = record
	r.order = append(r.order, record.ID)
	r.mu.Unlock()

	// Return a copy to prevent external modification
	recordCopy := *record
	return &recordCopy, nil
}

// QueryBySubmitter retrieves decisions for a specific submitter, sorted by time (newest first).
func (r *InMemoryRepository) QueryBySubmitter(submitter string, limit int) ([]*DecisionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*DecisionRecord

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		record := r.records[id]

		if record.Submitter == submitter {
			// Create a copy to prevent external modification
			recordCopy := *record
			results = append(results, &recordCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// QueryByDecision retrieves records with a specific decision code, sorted by time (newest first).
func (r *InMemoryRepository) QueryByDecision(decision string, limit int) ([]*DecisionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*DecisionRecord

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		record := r.records[id]

		if record.Decision == decision {
			recordCopy := *record
			results = append(results, &recordCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// AnonymizeIPsBefore coarsens stored IP addresses for records older than the cutoff.
func (r *InMemoryRepository) AnonymizeIPsBefore(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	for _, record := range r.records {
		if record.IPAddress == "" || !record.CreatedAt.Before(cutoff) {
			continue
		}
		anonymized := AnonymizeIP(record.IPAddress)
		if anonymized != record.IPAddress {
			record.IPAddress = anonymized
			changed++
		}
	}

	return changed, nil
}
