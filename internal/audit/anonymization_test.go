package audit

import (
	"context"
	"testing"
	"time"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ipv4", "192.168.1.100", "192.168.1.0"},
		{"ipv4 already zeroed", "10.0.0.0", "10.0.0.0"},
		{"ipv4 public", "203.0.113.77", "203.0.113.0"},
		{"ipv6", "2001:db8:abcd:1234:5678:9abc:def0:1234", "2001:db8:abcd::"},
		{"empty", "", ""},
		{"garbage", "not-an-ip", ""},
		{"hostname", "example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnonymizeIP(tt.input); got != tt.want {
				t.Errorf("AnonymizeIP(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIPAnonymizationCutoff(t *testing.T) {
	cutoff := IPAnonymizationCutoff()
	expected := time.Now().UTC().Add(-IPRetentionDays * 24 * time.Hour)

	// Allow a small window for execution time
	if diff := expected.Sub(cutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("IPAnonymizationCutoff() = %v, want about %v", cutoff, expected)
	}
}

func TestInMemoryRepository_AnonymizeIPsBefore(t *testing.T) {
	repo := NewInMemoryRepository()

	old, err := repo.Record(DecisionEntry{Submitter: "device-1", Decision: "verified", IPAddress: "203.0.113.77"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// Backdate the record past the retention window
	repo.mu.Lock()
	repo.records[old.ID].CreatedAt = time.Now().UTC().Add(-100 * 24 * time.Hour)
	repo.mu.Unlock()

	if _, err := repo.Record(DecisionEntry{Submitter: "device-2", Decision: "verified", IPAddress: "198.51.100.8"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	changed, err := repo.AnonymizeIPsBefore(IPAnonymizationCutoff())
	if err != nil {
		t.Fatalf("AnonymizeIPsBefore() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("AnonymizeIPsBefore() changed = %d, want 1", changed)
	}

	oldRecords, err := repo.QueryBySubmitter("device-1", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if oldRecords[0].IPAddress != "203.0.113.0" {
		t.Errorf("old record IPAddress = %q, want %q", oldRecords[0].IPAddress, "203.0.113.0")
	}

	recent, err := repo.QueryBySubmitter("device-2", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if recent[0].IPAddress != "198.51.100.8" {
		t.Errorf("recent record IPAddress = %q, want unchanged %q", recent[0].IPAddress, "198.51.100.8")
	}
}

func TestAnonymizationJob_Run(t *testing.T) {
	repo := NewInMemoryRepository()

	record, err := repo.Record(DecisionEntry{Submitter: "device-1", Decision: "verified", IPAddress: "203.0.113.77"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	repo.mu.Lock()
	repo.records[record.ID].CreatedAt = time.Now().UTC().Add(-100 * 24 * time.Hour)
	repo.mu.Unlock()

	job := NewAnonymizationJob(AnonymizationJobConfig{Repository: repo})
	changed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("Run() changed = %d, want 1", changed)
	}
}

func TestAnonymizationJob_DryRun(t *testing.T) {
	repo := NewInMemoryRepository()

	record, err := repo.Record(DecisionEntry{Submitter: "device-1", Decision: "verified", IPAddress: "203.0.113.77"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	repo.mu.Lock()
	repo.records[record.ID].CreatedAt = time.Now().UTC().Add(-100 * 24 * time.Hour)
	repo.mu.Unlock()

	job := NewAnonymizationJob(AnonymizationJobConfig{Repository: repo, DryRun: true})
	changed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if changed != 0 {
		t.Errorf("dry run changed = %d, want 0", changed)
	}

	records, err := repo.QueryBySubmitter("device-1", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if records[0].IPAddress != "203.0.113.77" {
		t.Errorf("dry run mutated IPAddress to %q", records[0].IPAddress)
	}
}

func TestAnonymizationJob_NilRepository(t *testing.T) {
	job := NewAnonymizationJob(AnonymizationJobConfig{})
	if _, err := job.Run(context.Background()); err != ErrNilRepository {
		t.Errorf("Run() error = %v, want ErrNilRepository", err)
	}
}
