// Package metadata extracts embedded capture metadata (EXIF) from photo
// bytes for authenticity checks: original capture timestamp, UTC offset
// and the GPS tag block.
package metadata

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// EXIF tag names consumed by the verifier.
const (
	tagDateTimeOriginal   = "DateTimeOriginal"
	tagOffsetTimeOriginal = "OffsetTimeOriginal"
	tagGPSLatitude        = "GPSLatitude"
	tagGPSLatitudeRef     = "GPSLatitudeRef"
	tagGPSLongitude       = "GPSLongitude"
	tagGPSLongitudeRef    = "GPSLongitudeRef"
)

// Rational is a degree/minute/second component as stored in the GPS tag
// block.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// Float converts the rational to float64. A zero denominator is a
// symbolic/non-finite component and reports ok=false.
func (r Rational) Float() (float64, bool) {
	if r.Denominator == 0 {
		return 0, false
	}
	return float64(r.Numerator) / float64(r.Denominator), true
}

// GPS is the nested GPS sub-block of the capture metadata.
type GPS struct {
	LatitudeRef  string
	Latitude     []Rational
	LongitudeRef string
	Longitude    []Rational
}

// Decimal converts the degree/minute/second rationals to signed decimal
// degrees: d + m/60 + s/3600, negated unless the hemisphere reference is
// "N" (latitude) or "E" (longitude). ok is false when either coordinate
// is missing, malformed or non-finite; callers treat that as absent GPS.
func (g *GPS) Decimal() (lat, lon float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}
	lat, ok = toDegrees(g.Latitude)
	if !ok {
		return 0, 0, false
	}
	lon, ok = toDegrees(g.Longitude)
	if !ok {
		return 0, 0, false
	}
	if strings.TrimSpace(g.LatitudeRef) != "N" {
		lat = -lat
	}
	if strings.TrimSpace(g.LongitudeRef) != "E" {
		lon = -lon
	}
	return lat, lon, true
}

func toDegrees(dms []Rational) (float64, bool) {
	if len(dms) != 3 {
		return 0, false
	}
	d, ok := dms[0].Float()
	if !ok {
		return 0, false
	}
	m, ok := dms[1].Float()
	if !ok {
		return 0, false
	}
	s, ok := dms[2].Float()
	if !ok {
		return 0, false
	}
	return d + m/60.0 + s/3600.0, true
}

// Metadata is the capture metadata relevant to authenticity verification.
type Metadata struct {
	// Present is false when the image carries no embedded capture
	// metadata at all (stripped by screenshots, social-media re-uploads
	// and most editors).
	Present bool
	// DateTimeOriginal is the raw EXIF capture timestamp
	// ("2006:01:02 15:04:05" layout), empty if absent.
	DateTimeOriginal string
	// OffsetTimeOriginal is the capture UTC offset ("+03:00"), empty if
	// absent.
	OffsetTimeOriginal string
	// GPS is the GPS tag block, nil if absent.
	GPS *GPS
}

// Extractor extracts capture metadata from raw image bytes.
type Extractor interface {
	Extract(image []byte) Metadata
}

// EXIFExtractor extracts metadata from embedded EXIF segments.
type EXIFExtractor struct{}

// NewEXIFExtractor returns the production metadata extractor.
func NewEXIFExtractor() *EXIFExtractor {
	return &EXIFExtractor{}
}

// Extract returns the capture metadata embedded in the image. Absent or
// undecodable EXIF yields a zero Metadata with Present=false; only the
// verifier decides what that means.
func (x *EXIFExtractor) Extract(image []byte) Metadata {
	rawExif, err := exif.SearchAndExtractExif(image)
	if err != nil {
		return Metadata{}
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil || len(tags) == 0 {
		return Metadata{}
	}

	md := Metadata{Present: true}
	var gps GPS
	for _, tag := range tags {
		switch tag.TagName {
		case tagDateTimeOriginal:
			md.DateTimeOriginal = strings.TrimSpace(tag.Formatted)
		case tagOffsetTimeOriginal:
			md.OffsetTimeOriginal = strings.TrimSpace(tag.Formatted)
		case tagGPSLatitudeRef:
			gps.LatitudeRef = strings.TrimSpace(tag.Formatted)
		case tagGPSLongitudeRef:
			gps.LongitudeRef = strings.TrimSpace(tag.Formatted)
		case tagGPSLatitude:
			gps.Latitude = toRationals(tag.Value)
		case tagGPSLongitude:
			gps.Longitude = toRationals(tag.Value)
		}
	}
	if len(gps.Latitude) > 0 || len(gps.Longitude) > 0 {
		md.GPS = &gps
	}
	return md
}

func toRationals(value interface{}) []Rational {
	raw, ok := value.([]exifcommon.Rational)
	if !ok {
		return nil
	}
	out := make([]Rational, len(raw))
	for i, r := range raw {
		out[i] = Rational{Numerator: r.Numerator, Denominator: r.Denominator}
	}
	return out
}
