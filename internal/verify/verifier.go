// Package verify decides whether an uploaded photo's embedded capture
// metadata is consistent with "freshly taken, at an approved location, by
// the submitting device". The checks run in a fixed order and the first
// applicable rejection wins; nothing here mutates any stored state.
package verify

import (
	"time"

	"github.com/takachain/takachain/internal/metadata"
)

// Status is the tagged verification result.
type Status string

// The six mutually exclusive verification outcomes.
const (
	// StatusVerified: metadata is consistent with an original, fresh,
	// in-region capture.
	StatusVerified Status = "verified"
	// StatusNonOriginal: no embedded capture metadata at all; stripped
	// images (screenshots, social-media re-uploads) are assumed
	// non-original.
	StatusNonOriginal Status = "non_original"
	// StatusStaleImage: capture timestamp predates the campaign start.
	StatusStaleImage Status = "stale_image"
	// StatusWrongTimezone: capture UTC offset is not the approved one.
	StatusWrongTimezone Status = "wrong_timezone"
	// StatusOutsideRegion: GPS coordinates fall outside the approved
	// region.
	StatusOutsideRegion Status = "outside_region"
	// StatusNoGPSData: no usable GPS block; indeterminate, not a
	// rejection. The caller decides the fallback policy.
	StatusNoGPSData Status = "no_gps_data"
)

// Rejected reports whether the status is a user-correctable rejection.
// StatusNoGPSData is indeterminate, not rejected.
func (s Status) Rejected() bool {
	switch s {
	case StatusNonOriginal, StatusStaleImage, StatusWrongTimezone, StatusOutsideRegion:
		return true
	}
	return false
}

// Campaign constants. Photos captured strictly before the cutoff are
// stale; equal to the cutoff is accepted.
var CaptureCutoff = time.Date(2024, time.August, 19, 20, 5, 46, 0, time.UTC)

const (
	// ApprovedUTCOffset is the single capture time-zone accepted by the
	// campaign.
	ApprovedUTCOffset = "+03:00"
	// exifTimeLayout is the EXIF DateTimeOriginal layout.
	exifTimeLayout = "2006:01:02 15:04:05"
)

// Outcome is the ephemeral verification result, consumed by the caller
// and discarded.
type Outcome struct {
	Status Status
	// CaptureTimestamp is the raw DateTimeOriginal string (empty when
	// absent); the ledger binds it into the content fingerprint.
	CaptureTimestamp string
	// Latitude/Longitude are set when HasLocation is true.
	Latitude    float64
	Longitude   float64
	HasLocation bool
}

// check inspects extracted metadata and returns a non-nil outcome to
// short-circuit the pipeline, or nil to pass to the next stage.
type check func(md metadata.Metadata) *Outcome

// Verifier runs the authenticity pipeline. It is stateless and safe for
// concurrent use.
type Verifier struct {
	extractor metadata.Extractor
	cutoff    time.Time
	offset    string
	checks    []check
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithExtractor overrides the metadata extractor. For tests.
func WithExtractor(x metadata.Extractor) Option {
	return func(v *Verifier) { v.extractor = x }
}

// WithCutoff overrides the campaign start cutoff. For tests.
func WithCutoff(cutoff time.Time) Option {
	return func(v *Verifier) { v.cutoff = cutoff }
}

// New creates a Verifier with the production EXIF extractor and campaign
// constants.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		extractor: metadata.NewEXIFExtractor(),
		cutoff:    CaptureCutoff,
		offset:    ApprovedUTCOffset,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.checks = []check{
		v.checkPresence,
		v.checkRecency,
		v.checkTimezone,
		v.checkLocation,
	}
	return v
}

// Verify runs the pipeline over the image's embedded metadata and returns
// exactly one tagged outcome. It is a pure function of the input bytes.
func (v *Verifier) Verify(image []byte) Outcome {
	md := v.extractor.Extract(image)
	for _, c := range v.checks {
		if out := c(md); out != nil {
			out.CaptureTimestamp = md.DateTimeOriginal
			return *out
		}
	}
	// The location check always terminates the pipeline.
	return Outcome{Status: StatusNoGPSData, CaptureTimestamp: md.DateTimeOriginal}
}

func (v *Verifier) checkPresence(md metadata.Metadata) *Outcome {
	if !md.Present {
		return &Outcome{Status: StatusNonOriginal}
	}
	return nil
}

// checkRecency rejects captures strictly before the cutoff. A missing or
// unparseable timestamp is not a rejection at this stage.
func (v *Verifier) checkRecency(md metadata.Metadata) *Outcome {
	if md.DateTimeOriginal == "" {
		return nil
	}
	taken, err := time.ParseInLocation(exifTimeLayout, md.DateTimeOriginal, time.UTC)
	if err != nil {
		return nil
	}
	if taken.Before(v.cutoff) {
		return &Outcome{Status: StatusStaleImage}
	}
	return nil
}

func (v *Verifier) checkTimezone(md metadata.Metadata) *Outcome {
	if md.OffsetTimeOriginal != "" && md.OffsetTimeOriginal != v.offset {
		return &Outcome{Status: StatusWrongTimezone}
	}
	return nil
}

// checkLocation is the terminal stage: absent or unconvertible GPS is
// indeterminate, a decoded point is tested against the approved region.
func (v *Verifier) checkLocation(md metadata.Metadata) *Outcome {
	lat, lon, ok := md.GPS.Decimal()
	if !ok {
		return &Outcome{Status: StatusNoGPSData}
	}
	out := &Outcome{Latitude: lat, Longitude: lon, HasLocation: true}
	if !inApprovedRegion(lon, lat) {
		out.Status = StatusOutsideRegion
		return out
	}
	out.Status = StatusVerified
	return out
}
