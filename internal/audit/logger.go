package audit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/takachain/takachain/internal/middleware"
)

var (
	// ErrNilRepository is returned when a nil repository is passed to recording functions.
	ErrNilRepository = errors.New("decision repository cannot be nil")
	// ErrInvalidDecision is returned when an unknown decision code is provided.
	ErrInvalidDecision = errors.New("unknown decision code")
)

// ValidDecisions defines the allowed decision codes for the submission log.
// They mirror the terminal outcomes of the submission pipeline.
var ValidDecisions = map[string]bool{
	"verified":             true,
	"no_gps_data":          true,
	"non_original":         true,
	"stale_image":          true,
	"wrong_timezone":       true,
	"outside_region":       true,
	"no_trash_detected":    true,
	"duplicate_submission": true,
	"undecodable_image":    true,
}

// validateEntry validates a decision entry against the known decision codes.
func validateEntry(decision string) error {
	if decision == "" || !ValidDecisions[decision] {
		return ErrInvalidDecision
	}
	return nil
}

// extractIPAddress extracts the client IP address from an HTTP request.
// It checks X-Forwarded-For, X-Real-IP, and RemoteAddr in that order.
// The port is stripped from the IP address to ensure compatibility with database storage.
func extractIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Use the first IP in the chain, trimming whitespace per RFC 7239
		var firstIP string
		if idx := strings.Index(xff, ","); idx != -1 {
			firstIP = strings.TrimSpace(xff[:idx])
		} else {
			firstIP = strings.TrimSpace(xff)
		}
		if firstIP != "" {
			host, _, err := net.SplitHostPort(firstIP)
			if err != nil {
				// IP might not have a port
				return firstIP
			}
			return host
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		xri = strings.TrimSpace(xri)
		host, _, err := net.SplitHostPort(xri)
		if err != nil {
			return xri
		}
		return host
	}

	// Fall back to RemoteAddr (strip port properly for both IPv4 and IPv6)
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RecordDecision records a submission decision to the log. The submitter
// and request ID are taken from the context when available.
func RecordDecision(ctx context.Context, repo Repository, decision, fingerprint string) error {
	if repo == nil {
		return ErrNilRepository
	}

	if err := validateEntry(decision); err != nil {
		return err
	}

	entry := DecisionEntry{
		Submitter:   middleware.GetSubmitter(ctx),
		Decision:    decision,
		Fingerprint: fingerprint,
		RequestID:   middleware.GetRequestID(ctx),
	}

	_, err := repo.Record(entry)
	return err
}

// RecordDecisionFromRequest records a submission decision with HTTP request
// metadata: submitter, request ID, client IP and user agent.
//
// IP address extraction:
// - Checks X-Forwarded-For header first (uses first IP from comma-separated list)
// - Falls back to X-Real-IP header
// - Finally uses RemoteAddr (with port stripped)
func RecordDecisionFromRequest(r *http.Request, repo Repository, decision, fingerprint string) error {
	if repo == nil {
		return ErrNilRepository
	}

	if err := validateEntry(decision); err != nil {
		return err
	}

	entry := DecisionEntry{
		Submitter:   middleware.GetSubmitter(r.Context()),
		Decision:    decision,
		Fingerprint: fingerprint,
		RequestID:   middleware.GetRequestID(r.Context()),
		IPAddress:   extractIPAddress(r),
		UserAgent:   r.UserAgent(),
	}

	_, err := repo.Record(entry)
	return err
}
