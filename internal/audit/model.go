// Package audit records the decision taken for every proof submission,
// for moderation review and incident response. The decision log is
// separate from the provenance chain: it keeps rejected submissions too.
package audit

import (
	"time"
)

// DecisionRecord is a single recorded submission decision.
type DecisionRecord struct {
	ID          string
	Submitter   string
	Decision    string // outcome code, e.g. "verified" or "stale_image"
	Fingerprint string // content fingerprint, empty for undecodable images
	CreatedAt   time.Time

	// Optional request metadata
	RequestID string
	IPAddress string
	UserAgent string
}

// DecisionEntry is the input for recording a submission decision.
type DecisionEntry struct {
	Submitter   string
	Decision    string
	Fingerprint string

	// Optional request metadata
	RequestID string
	IPAddress string
	UserAgent string
}
