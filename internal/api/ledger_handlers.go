// Package api provides HTTP handlers for ledger reads and auditing.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/takachain/takachain/internal/ledger"
	"github.com/takachain/takachain/internal/middleware"
)

// LedgerReader exposes the read and audit side of the provenance chain.
type LedgerReader interface {
	EntriesForProject(ctx context.Context, project string) ([]ledger.Entry, error)
	Verify(ctx context.Context) error
}

// LedgerHandlers holds dependencies for ledger HTTP handlers.
type LedgerHandlers struct {
	ledger LedgerReader
}

// NewLedgerHandlers creates a new LedgerHandlers instance.
func NewLedgerHandlers(reader LedgerReader) *LedgerHandlers {
	return &LedgerHandlers{ledger: reader}
}

// EntriesResponse represents the response for GET /projects/{name}/entries.
type EntriesResponse struct {
	Project string         `json:"project"`
	Entries []ledger.Entry `json:"entries"`
}

// VerifyResponse represents the response for GET /ledger/verify.
type VerifyResponse struct {
	Status string `json:"status"`
}

// ListEntries handles GET /projects/{name}/entries - returns the full chain
// in ascending sequence order.
func (h *LedgerHandlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	entries, err := h.ledger.EntriesForProject(r.Context(), name)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownProject) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeProjectNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeProjectNotFound, "Project not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to list ledger entries", "error", err, "project", name)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list entries")
		return
	}

	response := EntriesResponse{
		Project: name,
		Entries: entries,
	}
	if response.Entries == nil {
		response.Entries = []ledger.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode entries response", "error", err)
	}
}

// VerifyChain handles GET /ledger/verify - recomputes every digest and link
// in the chain. Tampering is reported, never repaired.
func (h *LedgerHandlers) VerifyChain(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Verify(r.Context()); err != nil {
		var tampered *ledger.TamperError
		if errors.As(err, &tampered) {
			slog.ErrorContext(r.Context(), "ledger audit failed",
				"sequence", tampered.Sequence, "reason", tampered.Reason)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeLedgerTampered)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeLedgerTampered, tampered.Error())
			return
		}
		slog.ErrorContext(r.Context(), "ledger audit failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to audit ledger")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(VerifyResponse{Status: "intact"}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode verify response", "error", err)
	}
}
