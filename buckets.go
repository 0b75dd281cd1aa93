package histstats

import "math"

// Bucket is a histogram bucket, Count is the cumulative number of samples
// lower than or equal to Bound.
type Bucket struct {
	Bound float64 `json:"le"`
	Count uint64  `json:"count"`
}

// LinearBuckets returns count bounds, the first one being start and each
// following bound being width greater than the previous.
//
// The function returns nil if count is not positive or width is not greater
// than zero, which histograms reject as invalid bounds.
func LinearBuckets(start, width float64, count int) []float64 {
	if count < 1 || !(width > 0) {
		return nil
	}

	bounds := make([]float64, count)
	for i := range bounds {
		bounds[i] = start + float64(i)*width
	}
	return bounds
}

// ExponentialBuckets returns count bounds, the first one being start and each
// following bound being factor times the previous.
//
// The function returns nil if count is not positive, start is not greater
// than zero or factor is not greater than one.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	if count < 1 || !(start > 0) || !(factor > 1) {
		return nil
	}

	bounds := make([]float64, count)
	for i := range bounds {
		bounds[i] = start
		start *= factor
	}
	return bounds
}

func validateBounds(bounds []float64) error {
	if len(bounds) == 0 {
		return &InvalidBoundsError{Bounds: bounds, Index: -1, Reason: "no bounds"}
	}

	for i, b := range bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return &InvalidBoundsError{Bounds: bounds, Index: i, Reason: "bound is not a finite number"}
		}
		if i != 0 && b <= bounds[i-1] {
			return &InvalidBoundsError{Bounds: bounds, Index: i, Reason: "bounds are not strictly increasing"}
		}
	}

	return nil
}
