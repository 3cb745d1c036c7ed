package transformer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// ErrInsufficientData is returned when a statistic is requested over an empty
// sample.
var ErrInsufficientData = errors.New("insufficient data")

// DefaultIQRMultiplier is the Tukey fence factor.
const DefaultIQRMultiplier = 1.5

// Quantile returns the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between the two closest ranks: position q*(n-1) in the sorted
// sample. values is not modified.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q), nil
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*w
}

// IQRBounds computes [Q1 - k*IQR, Q3 + k*IQR] over values. A sample with no
// spread between the quartiles collapses to [Q1, Q1].
func IQRBounds(values []float64, k float64) (trip.Bounds, error) {
	if len(values) == 0 {
		return trip.Bounds{}, fmt.Errorf("iqr bounds: %w", ErrInsufficientData)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return trip.Bounds{Lower: q1 - k*iqr, Upper: q3 + k*iqr}, nil
}
