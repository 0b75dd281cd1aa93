package histstats

import (
	"fmt"
	"math"
	"sort"
)

// Histogram is the distribution of values recorded for a single metric.
//
// Bounds are set when the histogram is created and never change afterward.
// Counts are maintained per bucket and accumulated when read, which keeps
// Record to a binary search and a few increments.
//
// Histogram values are not safe for concurrent use, programs that record from
// multiple goroutines should use a SyncManager.
type Histogram struct {
	bounds []float64 // strictly increasing upper bounds
	counts []uint64  // one slot per bound, the last slot is the +Inf bucket
	sum    float64
	count  uint64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
//
// The bounds must be a non-empty list of finite values in strictly increasing
// order, otherwise an error matching ErrInvalidBounds is returned. The
// histogram keeps its own copy of bounds.
func NewHistogram(bounds []float64) (*Histogram, error) {
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	return &Histogram{
		bounds: append([]float64(nil), bounds...),
		counts: make([]uint64, len(bounds)+1),
	}, nil
}

// Record adds value to the histogram.
//
// A value equal to a bound falls in that bound's bucket. NaN values are only
// counted in the +Inf bucket, they still contribute to the sum.
func (h *Histogram) Record(value float64) {
	h.counts[h.index(value)]++
	h.sum += value
	h.count++
}

// RecordMany adds each of values to the histogram, in order.
func (h *Histogram) RecordMany(values ...float64) {
	for _, v := range values {
		h.Record(v)
	}
}

func (h *Histogram) index(value float64) int {
	if math.IsNaN(value) {
		return len(h.bounds)
	}
	// First bound b such that value <= b, or len(bounds) for the +Inf bucket.
	return sort.SearchFloat64s(h.bounds, value)
}

// Bounds returns a copy of the bucket upper bounds.
func (h *Histogram) Bounds() []float64 {
	return append([]float64(nil), h.bounds...)
}

// Sum returns the sum of all recorded values.
func (h *Histogram) Sum() float64 { return h.sum }

// Count returns the number of recorded values, which is also the cumulative
// count of the +Inf bucket.
func (h *Histogram) Count() uint64 { return h.count }

// Overflow returns the number of values that were greater than every bound,
// NaN values included.
func (h *Histogram) Overflow() uint64 { return h.counts[len(h.bounds)] }

// Buckets returns the cumulative count of each configured bound.
//
// The +Inf bucket is not part of the returned slice, its cumulative count is
// the value returned by Count.
func (h *Histogram) Buckets() []Bucket {
	return h.AppendBuckets(make([]Bucket, 0, len(h.bounds)))
}

// AppendBuckets appends the cumulative buckets of h to dst and returns the
// extended slice.
func (h *Histogram) AppendBuckets(dst []Bucket) []Bucket {
	var cumulative uint64

	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		dst = append(dst, Bucket{Bound: bound, Count: cumulative})
	}

	return dst
}

// AppendText appends the compact representation of h to b, which has the form:
//
//	1:0,5:1,10:1,+Inf:1 sum=3 count=1
func (h *Histogram) AppendText(b []byte) []byte {
	return appendHistogram(b, h)
}

// String returns the compact representation of h.
func (h *Histogram) String() string {
	return string(h.AppendText(make([]byte, 0, 16*(len(h.bounds)+3))))
}

// Format satisfies the fmt.Formatter interface.
func (h *Histogram) Format(f fmt.State, _ rune) {
	f.Write(h.AppendText(make([]byte, 0, 16*(len(h.bounds)+3))))
}

// View is a read-only handle on a histogram held by a manager.
//
// The zero-value is not usable, views are obtained from Manager.Value.
type View struct{ h *Histogram }

func (v View) Bounds() []float64                   { return v.h.Bounds() }
func (v View) Sum() float64                        { return v.h.Sum() }
func (v View) Count() uint64                       { return v.h.Count() }
func (v View) Overflow() uint64                    { return v.h.Overflow() }
func (v View) Buckets() []Bucket                   { return v.h.Buckets() }
func (v View) AppendBuckets(dst []Bucket) []Bucket { return v.h.AppendBuckets(dst) }
func (v View) AppendText(b []byte) []byte          { return v.h.AppendText(b) }
func (v View) String() string                      { return v.h.String() }
func (v View) Format(f fmt.State, c rune)          { v.h.Format(f, c) }
