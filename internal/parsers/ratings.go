package parsers

import "math"

// Rating scales of the supported exports.
const (
	letterboxdScaleMax = 5.0  // half-star increments, 0.5-5
	imdbScaleMax       = 10.0 // whole stars, 1-10
)

// normalizeRating maps a source rating linearly onto the product's 1-5 scale
// and rounds to the nearest integer, half up. A zero or negative source
// rating means "no rating" and yields nil rather than zero.
func normalizeRating(source float64, scaleMax float64) *int {
	if source <= 0 || scaleMax <= 0 {
		return nil
	}

	scaled := source / scaleMax * 5
	rounded := int(math.Floor(scaled + 0.5))
	if rounded < 1 {
		rounded = 1
	}
	if rounded > 5 {
		rounded = 5
	}
	return &rounded
}
