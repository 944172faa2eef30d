package image

import (
	"fmt"

	"github.com/h2non/bimg"
)

// DisplayContentType is the MIME type of every display derivative.
const DisplayContentType = "image/jpeg"

// DisplayConfig holds settings for the display derivative of an accepted
// proof. The archived copy is publicly reachable, but the original's EXIF
// block carries the submitter's exact GPS position, so the stored copy is
// re-encoded with all metadata stripped.
type DisplayConfig struct {
	// Quality for JPEG encoding (1-100, default: 85)
	Quality int
	// MaxWidth caps the derivative width (0 = no limit). Height scales
	// with the aspect ratio.
	MaxWidth int
}

// DefaultDisplayConfig returns the settings used for archived proofs.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Quality:  85,
		MaxWidth: 1600,
	}
}

// PrepareDisplay produces the display derivative of a proof photo:
// metadata stripped, orientation corrected, re-encoded as JPEG with the
// default settings. Returns the derivative bytes and their content type.
func PrepareDisplay(input []byte) ([]byte, string, error) {
	return PrepareDisplayWithConfig(input, DefaultDisplayConfig())
}

// PrepareDisplayWithConfig is PrepareDisplay with custom settings.
func PrepareDisplayWithConfig(input []byte, config DisplayConfig) ([]byte, string, error) {
	img := bimg.NewImage(input)
	metadata, err := img.Metadata()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	options := bimg.Options{
		Quality:       config.Quality,
		Type:          bimg.JPEG,
		StripMetadata: true,
	}
	if config.MaxWidth > 0 && metadata.Size.Width > config.MaxWidth {
		options.Width = config.MaxWidth
	}

	out, err := img.Process(options)
	if err != nil {
		return nil, "", fmt.Errorf("prepare display image: %w", err)
	}
	return out, DisplayContentType, nil
}

// VerifyNoEXIF checks if the image has EXIF metadata.
// Returns true if no EXIF data is present, false otherwise.
func VerifyNoEXIF(imageBytes []byte) (bool, error) {
	img := bimg.NewImage(imageBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return false, fmt.Errorf("failed to read image metadata: %w", err)
	}

	exif := metadata.EXIF
	hasEXIF := exif.Make != "" || exif.Model != "" ||
		exif.GPSLatitude != "" || exif.GPSLongitude != "" ||
		exif.DateTimeOriginal != "" || exif.Software != ""

	return !hasEXIF, nil
}
