// Package image normalizes uploaded photos to a canonical pixel form so
// that content fingerprints survive re-encoding and file-format round
// trips from client and storage pipelines.
package image

import (
	"errors"
	"fmt"

	"github.com/h2non/bimg"
)

// ErrUndecodable marks input bytes that are not a decodable image. This is
// a fatal input error for the request, never an authenticity rejection.
var ErrUndecodable = errors.New("image bytes could not be decoded")

// Canonical form: a fixed square resolution in sRGB, re-serialized as PNG.
// PNG is lossless, so encoding the same pixel grid always yields the same
// bytes.
const (
	CanonicalSize = 256
)

// Canonicalize decodes the image, force-resizes it to CanonicalSize x
// CanonicalSize ignoring aspect ratio, strips all embedded metadata, and
// re-encodes to PNG. The result is the byte form hashed by the ledger's
// fingerprint.
func Canonicalize(input []byte) ([]byte, error) {
	img := bimg.NewImage(input)
	if _, err := img.Metadata(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	options := bimg.Options{
		Width:          CanonicalSize,
		Height:         CanonicalSize,
		Force:          true,
		Type:           bimg.PNG,
		StripMetadata:  true,
		Interpretation: bimg.InterpretationSRGB,
	}

	out, err := img.Process(options)
	if err != nil {
		return nil, fmt.Errorf("canonicalize image: %w", err)
	}
	return out, nil
}
