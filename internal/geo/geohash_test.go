package geo

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lng       float64
		precision int
		want      string
	}{
		{
			name:      "Nairobi",
			lat:       -1.286389,
			lng:       36.817223,
			precision: 6,
			want:      "kzf0tv",
		},
		{
			name:      "Mombasa",
			lat:       -4.043477,
			lng:       39.668206,
			precision: 6,
			want:      "kzk0yx",
		},
		{
			name:      "Kisumu",
			lat:       -0.091702,
			lng:       34.767956,
			precision: 6,
			want:      "kzbxrp",
		},
		{
			name:      "Nakuru",
			lat:       -0.303099,
			lng:       36.080026,
			precision: 6,
			want:      "kzcwm0",
		},
		{
			name:      "precision 5",
			lat:       -1.286389,
			lng:       36.817223,
			precision: 5,
			want:      "kzf0t",
		},
		{
			name:      "precision 9",
			lat:       -1.286389,
			lng:       36.817223,
			precision: 9,
			want:      "kzf0tvc6p",
		},
		{
			name:      "zero precision falls back to default",
			lat:       -1.286389,
			lng:       36.817223,
			precision: 0,
			want:      "kzf0tv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.lat, tt.lng, tt.precision)
			if got != tt.want {
				t.Errorf("Encode(%f, %f, %d) = %q, want %q", tt.lat, tt.lng, tt.precision, got, tt.want)
			}
		})
	}
}

func TestRoundGeohash(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		precision int
		want      string
	}{
		// Basic truncation cases
		{
			name:      "truncate full-resolution capture hash to default precision",
			input:     "kzf0tvc6p",
			precision: DefaultPrecision,
			want:      "kzf0tv",
		},
		{
			name:      "truncate to precision 5",
			input:     "kzf0tvc6p",
			precision: 5,
			want:      "kzf0t",
		},
		{
			name:      "truncate to precision 4",
			input:     "kzf0tvc6p",
			precision: 4,
			want:      "kzf0",
		},
		// Edge cases with input length
		{
			name:      "input shorter than precision - return as is",
			input:     "kzf",
			precision: 6,
			want:      "kzf",
		},
		{
			name:      "input equal to precision - return as is",
			input:     "kzf0tv",
			precision: 6,
			want:      "kzf0tv",
		},
		{
			name:      "input exactly one char longer",
			input:     "kzf0tvc",
			precision: 6,
			want:      "kzf0tv",
		},
		{
			name:      "single character input",
			input:     "k",
			precision: 6,
			want:      "k",
		},
		// Empty and invalid input cases
		{
			name:      "empty input returns empty",
			input:     "",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - letter a",
			input:     "kzfa0t",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - letter i",
			input:     "kzfi0t",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - letter l",
			input:     "kzfl0t",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - letter o",
			input:     "kzfo0t",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - special char",
			input:     "kzf-tv",
			precision: 6,
			want:      "",
		},
		{
			name:      "invalid character - space",
			input:     "kzf tv",
			precision: 6,
			want:      "",
		},
		// Case handling
		{
			name:      "uppercase input normalized to lowercase",
			input:     "KZF0TVC6P",
			precision: 6,
			want:      "kzf0tv",
		},
		{
			name:      "mixed case input normalized to lowercase",
			input:     "KzF0tVc6P",
			precision: 6,
			want:      "kzf0tv",
		},
		// Precision edge cases
		{
			name:      "precision 0 returns empty",
			input:     "kzf0tv",
			precision: 0,
			want:      "",
		},
		{
			name:      "negative precision returns empty",
			input:     "kzf0tv",
			precision: -1,
			want:      "",
		},
		{
			name:      "precision 1",
			input:     "kzf0tv",
			precision: 1,
			want:      "k",
		},
		// All valid characters
		{
			name:      "all valid digits",
			input:     "0123456789",
			precision: 10,
			want:      "0123456789",
		},
		{
			name:      "all valid letters",
			input:     "bcdefghjkmnpqrstuvwxyz",
			precision: 22,
			want:      "bcdefghjkmnpqrstuvwxyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundGeohash(tt.input, tt.precision)
			if got != tt.want {
				t.Errorf("RoundGeohash(%q, %d) = %q, want %q", tt.input, tt.precision, got, tt.want)
			}
		})
	}
}

func TestEncodeThenRound(t *testing.T) {
	// Rounding a full-resolution hash must agree with encoding directly at
	// the display precision.
	full := Encode(-1.286389, 36.817223, 9)
	if got, want := RoundGeohash(full, DefaultPrecision), Encode(-1.286389, 36.817223, DefaultPrecision); got != want {
		t.Errorf("RoundGeohash(%q, %d) = %q, want %q", full, DefaultPrecision, got, want)
	}
}

func TestDefaultPrecision(t *testing.T) {
	if DefaultPrecision != 6 {
		t.Errorf("DefaultPrecision = %d, want 6", DefaultPrecision)
	}
}
