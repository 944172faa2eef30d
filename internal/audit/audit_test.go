package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/takachain/takachain/internal/middleware"
)

func TestInMemoryRepository_Record(t *testing.T) {
	repo := NewInMemoryRepository()

	entry := DecisionEntry{
		Submitter:   "device-123",
		Decision:    "verified",
		Fingerprint: "a3f5",
		RequestID:   "req-456",
		IPAddress:   "192.168.1.1",
		UserAgent:   "Mozilla/5.0",
	}

	record, err := repo.Record(entry)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if record.ID == "" {
		t.Error("Record() should generate an ID")
	}
	if record.Submitter != entry.Submitter {
		t.Errorf("Record() Submitter = %q, want %q", record.Submitter, entry.Submitter)
	}
	if record.Decision != entry.Decision {
		t.Errorf("Record() Decision = %q, want %q", record.Decision, entry.Decision)
	}
	if record.Fingerprint != entry.Fingerprint {
		t.Errorf("Record() Fingerprint = %q, want %q", record.Fingerprint, entry.Fingerprint)
	}
	if record.RequestID != entry.RequestID {
		t.Errorf("Record() RequestID = %q, want %q", record.RequestID, entry.RequestID)
	}
	if record.IPAddress != entry.IPAddress {
		t.Errorf("Record() IPAddress = %q, want %q", record.IPAddress, entry.IPAddress)
	}
	if record.UserAgent != entry.UserAgent {
		t.Errorf("Record() UserAgent = %q, want %q", record.UserAgent, entry.UserAgent)
	}
	if record.CreatedAt.IsZero() {
		t.Error("Record() should set CreatedAt timestamp")
	}

	// Verify timestamp is recent (within last 5 seconds)
	if time.Since(record.CreatedAt) > 5*time.Second {
		t.Error("Record() CreatedAt should be recent")
	}
}

func TestInMemoryRepository_QueryBySubmitter(t *testing.T) {
	repo := NewInMemoryRepository()

	entries := []DecisionEntry{
		{Submitter: "device-1", Decision: "verified", Fingerprint: "f1"},
		{Submitter: "device-2", Decision: "stale_image"},
		{Submitter: "device-1", Decision: "duplicate_submission", Fingerprint: "f1"},
		{Submitter: "device-3", Decision: "verified", Fingerprint: "f3"},
		{Submitter: "device-1", Decision: "outside_region"},
	}

	for _, entry := range entries {
		if _, err := repo.Record(entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	records, err := repo.QueryBySubmitter("device-1", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("QueryBySubmitter() returned %d records, want 3", len(records))
	}

	// Newest first
	if records[0].Decision != "outside_region" {
		t.Errorf("first record Decision = %q, want %q", records[0].Decision, "outside_region")
	}
	if records[2].Decision != "verified" {
		t.Errorf("last record Decision = %q, want %q", records[2].Decision, "verified")
	}

	limited, err := repo.QueryBySubmitter("device-1", 2)
	if err != nil {
		t.Fatalf("QueryBySubmitter() with limit error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("QueryBySubmitter() with limit returned %d records, want 2", len(limited))
	}
}

func TestInMemoryRepository_QueryByDecision(t *testing.T) {
	repo := NewInMemoryRepository()

	entries := []DecisionEntry{
		{Submitter: "device-1", Decision: "verified", Fingerprint: "f1"},
		{Submitter: "device-2", Decision: "no_trash_detected"},
		{Submitter: "device-3", Decision: "verified", Fingerprint: "f3"},
	}
	for _, entry := range entries {
		if _, err := repo.Record(entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	records, err := repo.QueryByDecision("verified", 0)
	if err != nil {
		t.Fatalf("QueryByDecision() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("QueryByDecision() returned %d records, want 2", len(records))
	}
	for _, record := range records {
		if record.Decision != "verified" {
			t.Errorf("record Decision = %q, want %q", record.Decision, "verified")
		}
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()

	record, err := repo.Record(DecisionEntry{Submitter: "device-1", Decision: "verified"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	record.Decision = "tampered"

	records, err := repo.QueryBySubmitter("device-1", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if records[0].Decision != "verified" {
		t.Errorf("stored record was mutated through returned copy")
	}
}

func TestRecordDecision(t *testing.T) {
	repo := NewInMemoryRepository()

	ctx := middleware.SetSubmitter(context.Background(), "device-42")

	if err := RecordDecision(ctx, repo, "stale_image", ""); err != nil {
		t.Fatalf("RecordDecision() error = %v", err)
	}

	records, err := repo.QueryBySubmitter("device-42", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Decision != "stale_image" {
		t.Errorf("Decision = %q, want %q", records[0].Decision, "stale_image")
	}
}

func TestRecordDecision_NilRepository(t *testing.T) {
	err := RecordDecision(context.Background(), nil, "verified", "f1")
	if err != ErrNilRepository {
		t.Errorf("RecordDecision() error = %v, want ErrNilRepository", err)
	}
}

func TestRecordDecision_InvalidCode(t *testing.T) {
	repo := NewInMemoryRepository()

	tests := []string{"", "approved", "SELECT * FROM decision_log"}
	for _, decision := range tests {
		if err := RecordDecision(context.Background(), repo, decision, ""); err != ErrInvalidDecision {
			t.Errorf("RecordDecision(%q) error = %v, want ErrInvalidDecision", decision, err)
		}
	}
}

func TestRecordDecisionFromRequest(t *testing.T) {
	repo := NewInMemoryRepository()

	req := httptest.NewRequest(http.MethodPost, "/proofs", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("User-Agent", "takachain-app/1.2")
	ctx := middleware.SetSubmitter(req.Context(), "device-9")
	req = req.WithContext(ctx)

	if err := RecordDecisionFromRequest(req, repo, "verified", "deadbeef"); err != nil {
		t.Fatalf("RecordDecisionFromRequest() error = %v", err)
	}

	records, err := repo.QueryBySubmitter("device-9", 0)
	if err != nil {
		t.Fatalf("QueryBySubmitter() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.IPAddress != "203.0.113.7" {
		t.Errorf("IPAddress = %q, want %q (port stripped)", record.IPAddress, "203.0.113.7")
	}
	if record.UserAgent != "takachain-app/1.2" {
		t.Errorf("UserAgent = %q, want %q", record.UserAgent, "takachain-app/1.2")
	}
	if record.Fingerprint != "deadbeef" {
		t.Errorf("Fingerprint = %q, want %q", record.Fingerprint, "deadbeef")
	}
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "198.51.100.4:8080",
			want:       "198.51.100.4",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for chain uses first",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "192.0.2.44"},
			want:       "192.0.2.44",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/proofs", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := extractIPAddress(req); got != tt.want {
				t.Errorf("extractIPAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}
