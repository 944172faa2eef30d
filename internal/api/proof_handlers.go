// Package api provides HTTP handlers for proof submission.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/takachain/takachain/internal/audit"
	"github.com/takachain/takachain/internal/classify"
	"github.com/takachain/takachain/internal/geo"
	"github.com/takachain/takachain/internal/image"
	"github.com/takachain/takachain/internal/middleware"
	"github.com/takachain/takachain/internal/upload"
	"github.com/takachain/takachain/internal/verify"
)

// User-facing rejection messages. These are shown verbatim to submitters,
// so wording changes are user-visible.
const (
	MsgNonOriginal     = "Upload the original photo. Tip: If on laptop, use cloud to download."
	MsgStaleImage      = "Only photos taken after August, 19 2024 are accepted"
	MsgWrongLocation   = "Wrong image geographical location. Not a global function, yet. Try Kenya"
	MsgNoTrashDetected = "No trash detected in the photo. Take the photo at the cleanup site."
	MsgDuplicate       = "This photo has already been recorded"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger parts spill to disk.
const maxMultipartMemory = 8 << 20

// SubmitProofResponse represents the response for an accepted POST /proofs.
type SubmitProofResponse struct {
	Fingerprint string `json:"fingerprint"`
	URL         string `json:"url,omitempty"`
	// LocationVerified is false when the photo carried no usable GPS data
	// and was accepted under the indeterminate-location policy.
	LocationVerified bool `json:"location_verified"`
	// Geohash is a coarse public location for verified captures. Precision
	// is capped so the exact capture point is not exposed.
	Geohash string `json:"geohash,omitempty"`
}

// DuplicateProofResponse is the 409 body for a resubmitted photo.
type DuplicateProofResponse struct {
	Error       ErrorDetail `json:"error"`
	Fingerprint string      `json:"fingerprint"`
}

// Verifier decides whether a photo's capture metadata is authentic.
type Verifier interface {
	Verify(image []byte) verify.Outcome
}

// Submitter records an accepted photo in the provenance chain.
type Submitter interface {
	Submit(ctx context.Context, image []byte, capturedAt string) (isDuplicate bool, fingerprint string, err error)
}

// Sanitizer produces the archive copy of an accepted photo, returning the
// derivative bytes and their content type.
type Sanitizer func(image []byte) ([]byte, string, error)

// ProofHandlers holds dependencies for proof submission.
type ProofHandlers struct {
	ledger     Submitter
	verifier   Verifier
	classifier classify.Classifier
	archiver   upload.Archiver
	sanitize   Sanitizer
	decisions  audit.Repository
	threshold  float64
	metrics    *middleware.Metrics
}

// ProofHandlersConfig configures the proof submission handler.
type ProofHandlersConfig struct {
	Ledger     Submitter
	Verifier   Verifier
	Classifier classify.Classifier
	Archiver   upload.Archiver
	// Sanitizer, when set, rewrites the photo before archiving. The API
	// server uses it to strip metadata from the publicly reachable copy.
	Sanitizer Sanitizer
	// Decisions, when set, receives a record of every terminal submission
	// outcome for moderation review.
	Decisions audit.Repository
	// ConfidenceThreshold for the trash gate; zero uses the default.
	ConfidenceThreshold float64
	Metrics             *middleware.Metrics
}

// NewProofHandlers creates a new ProofHandlers instance.
func NewProofHandlers(cfg ProofHandlersConfig) *ProofHandlers {
	return &ProofHandlers{
		ledger:     cfg.Ledger,
		verifier:   cfg.Verifier,
		classifier: cfg.Classifier,
		archiver:   cfg.Archiver,
		sanitize:   cfg.Sanitizer,
		decisions:  cfg.Decisions,
		threshold:  cfg.ConfidenceThreshold,
		metrics:    cfg.Metrics,
	}
}

// SubmitProof handles POST /proofs - verifies and records a cleanup photo.
//
// Pipeline: multipart parse -> metadata verification -> trash classifier
// gate -> ledger append -> object archive. The first rejection terminates
// the request; rejections are user errors, not faults.
func (h *ProofHandlers) SubmitProof(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be multipart/form-data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, `Multipart field "image" is required`)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := upload.ValidateContentType(contentType); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType,
			"Unsupported content type. Allowed types: image/jpeg, image/png")
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read uploaded file", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to read uploaded file")
		return
	}
	if len(imageBytes) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Uploaded file is empty")
		return
	}

	// Stage 1: capture metadata verification.
	outcome := h.verifier.Verify(imageBytes)
	if outcome.Status.Rejected() {
		h.rejectOutcome(w, r, outcome.Status)
		return
	}

	// Stage 2: trash classifier gate.
	detections, err := h.classifier.Detect(r.Context(), imageBytes)
	if err != nil {
		slog.ErrorContext(r.Context(), "classifier request failed", "error", err)
		h.countSubmission("classifier_error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Trash detection is unavailable, try again")
		return
	}
	if !classify.TrashPresent(detections, h.threshold) {
		h.countSubmission(ErrCodeNoTrashDetected)
		h.recordDecision(r, ErrCodeNoTrashDetected, "")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNoTrashDetected)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeNoTrashDetected, MsgNoTrashDetected)
		return
	}

	// Stage 3: chain the photo. The capture timestamp is bound into the
	// content fingerprint so pixel-identical photos taken at different
	// moments stay distinct.
	isDuplicate, fingerprint, err := h.ledger.Submit(r.Context(), imageBytes, outcome.CaptureTimestamp)
	if err != nil {
		if errors.Is(err, image.ErrUndecodable) {
			h.countSubmission(ErrCodeUndecodableImage)
			h.recordDecision(r, ErrCodeUndecodableImage, "")
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUndecodableImage)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUndecodableImage, "Image could not be decoded")
			return
		}
		slog.ErrorContext(r.Context(), "ledger submit failed", "error", err)
		h.countSubmission("ledger_error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record proof, try again")
		return
	}
	if isDuplicate {
		h.countSubmission(ErrCodeDuplicateSubmission)
		h.recordDecision(r, ErrCodeDuplicateSubmission, fingerprint)
		h.writeDuplicate(w, r, fingerprint)
		return
	}

	// Stage 4: archive the photo. The chain entry already exists; an
	// archive failure is logged but does not reject the submission. When a
	// sanitizer is configured the stored copy has its metadata stripped so
	// the public URL does not leak the capture position; a sanitizer
	// failure skips the archive rather than store the raw bytes.
	var objectURL string
	if h.archiver != nil {
		archiveBytes, archiveType := imageBytes, contentType
		if h.sanitize != nil {
			sanitized, sanitizedType, err := h.sanitize(imageBytes)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to prepare archive copy",
					"error", err, "fingerprint", fingerprint)
				archiveBytes = nil
			} else {
				archiveBytes, archiveType = sanitized, sanitizedType
			}
		}
		if archiveBytes != nil {
			stored, err := h.archiver.Store(r.Context(), archiveBytes, archiveType)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to archive proof image",
					"error", err, "fingerprint", fingerprint)
			} else {
				objectURL = stored.URL
			}
		}
	}

	h.countSubmission(string(outcome.Status))
	h.recordDecision(r, string(outcome.Status), fingerprint)

	response := SubmitProofResponse{
		Fingerprint:      fingerprint,
		URL:              objectURL,
		LocationVerified: outcome.Status == verify.StatusVerified,
	}
	if outcome.HasLocation {
		response.Geohash = geo.Encode(outcome.Latitude, outcome.Longitude, geo.DefaultPrecision)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// rejectOutcome maps a verification rejection to its error code and
// user-facing message. Wrong time zone is reported as a location problem,
// matching what submitters see in the field.
func (h *ProofHandlers) rejectOutcome(w http.ResponseWriter, r *http.Request, status verify.Status) {
	var code, message string
	switch status {
	case verify.StatusNonOriginal:
		code, message = ErrCodeNonOriginal, MsgNonOriginal
	case verify.StatusStaleImage:
		code, message = ErrCodeStaleImage, MsgStaleImage
	case verify.StatusWrongTimezone:
		code, message = ErrCodeWrongTimezone, MsgWrongLocation
	case verify.StatusOutsideRegion:
		code, message = ErrCodeOutsideRegion, MsgWrongLocation
	default:
		code, message = ErrCodeBadRequest, "Photo could not be verified"
	}
	h.countSubmission(code)
	h.recordDecision(r, code, "")
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, http.StatusBadRequest, code, message)
}

// writeDuplicate writes the 409 duplicate response including the fingerprint
// so the client can correlate with the existing chain entry.
func (h *ProofHandlers) writeDuplicate(w http.ResponseWriter, r *http.Request, fingerprint string) {
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateSubmission)
	middleware.UpdateResponseContext(w, ctx)

	response := DuplicateProofResponse{
		Error: ErrorDetail{
			Code:    ErrCodeDuplicateSubmission,
			Message: MsgDuplicate,
		},
		Fingerprint: fingerprint,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusConflict)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(ctx, "failed to encode duplicate response", "error", err)
	}
}

func (h *ProofHandlers) countSubmission(outcome string) {
	if h.metrics != nil {
		h.metrics.IncProofSubmissions(outcome)
	}
}

// recordDecision writes the terminal outcome to the decision log. Recording
// is best-effort: a log failure never changes the submitter's response.
func (h *ProofHandlers) recordDecision(r *http.Request, decision, fingerprint string) {
	if h.decisions == nil {
		return
	}
	if err := audit.RecordDecisionFromRequest(r, h.decisions, decision, fingerprint); err != nil {
		slog.ErrorContext(r.Context(), "failed to record submission decision",
			"error", err, "decision", decision)
	}
}
