package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/takachain/takachain/internal/audit"
	"github.com/takachain/takachain/internal/middleware"
)

// DecisionHandlers serves the submission decision log for moderation review.
type DecisionHandlers struct {
	decisions audit.Repository
}

// NewDecisionHandlers creates a new DecisionHandlers instance.
func NewDecisionHandlers(decisions audit.Repository) *DecisionHandlers {
	return &DecisionHandlers{decisions: decisions}
}

// Export handles GET /decisions/export - exports decision records as CSV or
// JSON. Requires a submitter or decision filter; time range and limit are
// optional.
//
// Query parameters:
//   - format: "csv" or "json" (default json)
//   - submitter: filter by submitter identifier
//   - decision: filter by decision code
//   - from, to: RFC 3339 timestamps bounding the export window
//   - limit: maximum number of records
func (h *DecisionHandlers) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := audit.ExportFormat(q.Get("format"))
	if format == "" {
		format = audit.ExportFormatJSON
	}
	if format != audit.ExportFormatCSV && format != audit.ExportFormatJSON {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("Unsupported export format %q. Use csv or json", q.Get("format")))
		return
	}

	opts := audit.ExportOptions{
		Format:    format,
		Submitter: q.Get("submitter"),
		Decision:  q.Get("decision"),
	}

	if opts.Submitter == "" && opts.Decision == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			`Export requires a "submitter" or "decision" filter`)
		return
	}
	if opts.Decision != "" && !audit.ValidDecisions[opts.Decision] {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("Unknown decision code %q", opts.Decision))
		return
	}

	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
				`Query parameter "from" must be an RFC 3339 timestamp`)
			return
		}
		opts.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
				`Query parameter "to" must be an RFC 3339 timestamp`)
			return
		}
		opts.To = to
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
				`Query parameter "limit" must be a non-negative integer`)
			return
		}
		opts.Limit = limit
	}

	data, err := audit.ExportDecisions(h.decisions, opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "decision export failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to export decisions")
		return
	}

	switch format {
	case audit.ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="decisions.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write export response", "error", err)
	}
}
