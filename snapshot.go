package histstats

import (
	"io"
	"math"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Snapshot is a point-in-time copy of the histograms of a manager.
type Snapshot struct {
	Histograms []HistogramSnapshot `json:"histograms"`
}

// HistogramSnapshot is the state of a single histogram in a Snapshot.
type HistogramSnapshot struct {
	// Display name of the histogram key.
	Name string `json:"name"`

	// Name of the histogram in the export format.
	Metric string `json:"metric"`

	Buckets []Bucket `json:"buckets"`
	Sum     Float    `json:"sum"`
	Count   uint64   `json:"count"`
}

// Float is a float64 which encodes to JSON as a number when finite and as one
// of the strings "NaN", "+Inf" or "-Inf" otherwise.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.AppendQuote(nil, strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
	return appendFloat(nil, v), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if len(b) != 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		b = []byte(s)
	}

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}

	*f = Float(v)
	return nil
}

// Snapshot returns a copy of the state of every initialized histogram, in
// ascending key order.
func (m *Manager[K]) Snapshot() Snapshot {
	keys := m.Keys()
	snap := Snapshot{Histograms: make([]HistogramSnapshot, 0, len(keys))}

	for _, key := range keys {
		h := m.entries[key]
		snap.Histograms = append(snap.Histograms, HistogramSnapshot{
			Name:    key.String(),
			Metric:  m.metricName(key),
			Buckets: h.Buckets(),
			Sum:     Float(h.sum),
			Count:   h.count,
		})
	}

	return snap
}

// ExportJSON writes the JSON representation of the manager's snapshot to w,
// followed by a newline.
func (m *Manager[K]) ExportJSON(w io.Writer) error {
	return m.Snapshot().WriteJSON(w)
}

// WriteJSON writes the JSON representation of s to w, followed by a newline.
func (s Snapshot) WriteJSON(w io.Writer) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// ParseSnapshot decodes a snapshot from its JSON representation.
func ParseSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(b, &s)
	return s, err
}
