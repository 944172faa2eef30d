package metadata

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"
)

func dms(d, m uint32, sNum, sDen uint32) []Rational {
	return []Rational{
		{Numerator: d, Denominator: 1},
		{Numerator: m, Denominator: 1},
		{Numerator: sNum, Denominator: sDen},
	}
}

func TestGPS_Decimal_NorthEast(t *testing.T) {
	g := &GPS{
		LatitudeRef:  "N",
		Latitude:     dms(1, 30, 0, 1),
		LongitudeRef: "E",
		Longitude:    dms(36, 49, 1200, 100), // 36 + 49/60 + 12/3600
	}

	lat, lon, ok := g.Decimal()
	if !ok {
		t.Fatal("Decimal() ok = false, want true")
	}
	if math.Abs(lat-1.5) > 1e-9 {
		t.Errorf("lat = %v, want 1.5", lat)
	}
	wantLon := 36.0 + 49.0/60.0 + 12.0/3600.0
	if math.Abs(lon-wantLon) > 1e-9 {
		t.Errorf("lon = %v, want %v", lon, wantLon)
	}
}

func TestGPS_Decimal_SouthWest(t *testing.T) {
	g := &GPS{
		LatitudeRef:  "S",
		Latitude:     dms(4, 0, 0, 1),
		LongitudeRef: "W",
		Longitude:    dms(70, 30, 0, 1),
	}

	lat, lon, ok := g.Decimal()
	if !ok {
		t.Fatal("Decimal() ok = false, want true")
	}
	if lat != -4.0 {
		t.Errorf("lat = %v, want -4.0 (southern hemisphere negated)", lat)
	}
	if lon != -70.5 {
		t.Errorf("lon = %v, want -70.5 (western hemisphere negated)", lon)
	}
}

func TestGPS_Decimal_ZeroDenominator(t *testing.T) {
	g := &GPS{
		LatitudeRef:  "N",
		Latitude:     []Rational{{1, 1}, {0, 0}, {0, 1}}, // symbolic minute
		LongitudeRef: "E",
		Longitude:    dms(36, 0, 0, 1),
	}

	if _, _, ok := g.Decimal(); ok {
		t.Error("Decimal() with zero denominator should report ok=false")
	}
}

func TestGPS_Decimal_MissingComponents(t *testing.T) {
	cases := []struct {
		name string
		g    *GPS
	}{
		{"nil block", nil},
		{"empty latitude", &GPS{LongitudeRef: "E", Longitude: dms(36, 0, 0, 1)}},
		{"short longitude", &GPS{
			LatitudeRef: "N", Latitude: dms(1, 0, 0, 1),
			LongitudeRef: "E", Longitude: []Rational{{36, 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, ok := tc.g.Decimal(); ok {
				t.Error("Decimal() ok = true, want false")
			}
		})
	}
}

func TestRational_Float(t *testing.T) {
	if v, ok := (Rational{3, 2}).Float(); !ok || v != 1.5 {
		t.Errorf("Float() = %v, %v, want 1.5, true", v, ok)
	}
	if _, ok := (Rational{1, 0}).Float(); ok {
		t.Error("Float() with zero denominator should report ok=false")
	}
}

func TestExtract_NoEXIF(t *testing.T) {
	// Stdlib PNG encoding carries no EXIF segment.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}

	md := NewEXIFExtractor().Extract(buf.Bytes())
	if md.Present {
		t.Error("Extract() on metadata-free PNG reported Present=true")
	}
	if md.GPS != nil {
		t.Error("Extract() on metadata-free PNG returned a GPS block")
	}
}

func TestExtract_Junk(t *testing.T) {
	md := NewEXIFExtractor().Extract([]byte("not an image at all"))
	if md.Present {
		t.Error("Extract() on junk bytes reported Present=true")
	}
}
