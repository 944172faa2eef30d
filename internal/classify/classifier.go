// Package classify defines the trash-object classifier as a capability
// interface so the concrete model is swappable and mockable. The model
// itself is an external system; only its input/output contract lives
// here.
package classify

// Detection is a single detected object class with its confidence score.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DefaultConfidenceThreshold is the minimum score for a detection to
// count. Strictly greater-than.
const DefaultConfidenceThreshold = 0.5

// trashLabels is the fixed allow-list of class names that count as trash.
var trashLabels = map[string]bool{
	"Aerosol": true, "Aluminium foil": true, "Battery": true, "Broken glass": true,
	"Cigarette": true, "Corrugated carton": true, "Crisp packet": true, "Drink can": true,
	"Drink carton": true, "Egg carton": true, "Foam cup": true, "Food Can": true,
	"Food waste": true, "Garbage bag": true, "Glass": true, "Glass bottle": true,
	"Glass cup": true, "Glass jar": true, "Magazine paper": true, "Meal carton": true,
	"Metal": true, "Metal lid": true, "Normal paper": true, "Paper": true, "Paper bag": true,
	"Paper cup": true, "Paper straw": true, "Pizza box": true, "Plastic": true,
	"Plastic film": true, "Plastic lid": true, "Plastic straw": true, "Plastic utensils": true,
	"Polypropylene bag": true, "Pop tab": true, "Scrap metal": true, "Shoe": true,
	"Spread tub": true, "Squeezable tube": true, "Styrofoam piece": true, "Tissues": true,
	"Toilet tube": true, "Tupperware": true, "Waste": true, "Wrapping paper": true,
}

// TrashPresent applies the allow-list and confidence threshold to a set
// of detections and reports whether any trash object was found.
func TrashPresent(detections []Detection, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	for _, d := range detections {
		if trashLabels[d.Label] && d.Confidence > threshold {
			return true
		}
	}
	return false
}
