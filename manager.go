package histstats

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ManagerConfig carries the different configuration values that can be set
// when creating a new manager.
type ManagerConfig[K Key] struct {
	// Namespace is prepended to the names of histograms in the export format.
	Namespace string

	// Order is the canonical order in which PrintMetrics reports histograms.
	//
	// Keys that are not part of Order are reported after the ones that are,
	// in ascending key order. When Order is empty, keys are reported in
	// ascending order.
	Order []K

	// Logger receives the lines produced by PrintMetrics. When nil, nothing is
	// logged.
	Logger *zap.Logger
}

// Manager is a registry of histograms indexed by keys of type K.
//
// The zero-value is a valid manager with no namespace, no canonical order and
// no logger. Managers are not safe for concurrent use, see SyncManager.
type Manager[K Key] struct {
	config  ManagerConfig[K]
	entries map[K]*Histogram
	names   map[string]K // export names of initialized histograms
}

// NewManager creates and returns a manager configured with config.
func NewManager[K Key](config ManagerConfig[K]) *Manager[K] {
	return &Manager[K]{
		config:  config,
		entries: make(map[K]*Histogram),
		names:   make(map[string]K),
	}
}

// Init creates the histogram identified by key with the given bucket bounds.
//
// Only the first call for a key has an effect: when a histogram already exists
// for key, the method does nothing and returns nil. If bounds are invalid, the
// error returned by NewHistogram is returned and key remains uninitialized.
//
// Keys whose export name (see MetricName) is already used by another
// initialized key are rejected with an error matching ErrNameConflict.
func (m *Manager[K]) Init(key K, bounds []float64) error {
	if _, exists := m.entries[key]; exists {
		return nil
	}

	name := m.metricName(key)
	if other, used := m.names[name]; used {
		return fmt.Errorf("initializing histogram %s: %w: %q is the name of %s", key, ErrNameConflict, name, other)
	}

	h, err := NewHistogram(bounds)
	if err != nil {
		return fmt.Errorf("initializing histogram %s: %w", key, err)
	}

	if m.entries == nil {
		m.entries = make(map[K]*Histogram)
		m.names = make(map[string]K)
	}

	m.entries[key] = h
	m.names[name] = key
	return nil
}

// Value returns a read-only view of the histogram identified by key, if it
// was initialized.
//
// The view reflects later updates of the histogram, it must not be used
// concurrently with them.
func (m *Manager[K]) Value(key K) (View, bool) {
	h, ok := m.entries[key]
	return View{h: h}, ok
}

// Record adds value to the histogram identified by key. The method does
// nothing if key was never initialized.
func (m *Manager[K]) Record(key K, value float64) {
	if h := m.entries[key]; h != nil {
		h.Record(value)
	}
}

// RecordMany adds values to the histogram identified by key. The method does
// nothing if key was never initialized.
func (m *Manager[K]) RecordMany(key K, values ...float64) {
	if h := m.entries[key]; h != nil {
		h.RecordMany(values...)
	}
}

// Sum returns the sum of values recorded for key, or zero.
func (m *Manager[K]) Sum(key K) float64 {
	if h := m.entries[key]; h != nil {
		return h.sum
	}
	return 0
}

// Count returns the number of values recorded for key, or zero.
func (m *Manager[K]) Count(key K) uint64 {
	if h := m.entries[key]; h != nil {
		return h.count
	}
	return 0
}

// Buckets returns the cumulative buckets of the histogram identified by key,
// or nil if it was never initialized.
func (m *Manager[K]) Buckets(key K) []Bucket {
	if h := m.entries[key]; h != nil {
		return h.Buckets()
	}
	return nil
}

// Len returns the number of initialized histograms.
func (m *Manager[K]) Len() int {
	return len(m.entries)
}

// Keys returns the keys of initialized histograms in ascending order.
func (m *Manager[K]) Keys() []K {
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PrintMetrics logs one line per initialized histogram, in canonical order.
func (m *Manager[K]) PrintMetrics() {
	logger := m.logger()

	m.eachLine(func(key K, line []byte) {
		logger.Info(string(line), zap.String("metric", key.String()))
	})
}

// eachLine calls fn with the log line of every histogram in canonical order.
// The line buffer is reused between calls.
func (m *Manager[K]) eachLine(fn func(K, []byte)) {
	if len(m.entries) == 0 {
		return
	}

	b := make([]byte, 0, 256)
	seen := make(map[K]struct{}, len(m.entries))

	for _, key := range m.config.Order {
		if _, dup := seen[key]; dup {
			continue
		}
		if h := m.entries[key]; h != nil {
			seen[key] = struct{}{}
			b = appendLogLine(b[:0], key.String(), h)
			fn(key, b)
		}
	}

	if len(seen) == len(m.entries) {
		return
	}

	for _, key := range m.Keys() {
		if _, done := seen[key]; !done {
			b = appendLogLine(b[:0], key.String(), m.entries[key])
			fn(key, b)
		}
	}
}

// AppendExport appends the prometheus text representation of every
// initialized histogram to b, in ascending key order, and returns the extended
// slice.
func (m *Manager[K]) AppendExport(b []byte) []byte {
	for _, key := range m.Keys() {
		b = appendExport(b, m.metricName(key), m.entries[key])
	}
	return b
}

// Export writes the prometheus text representation of every initialized
// histogram to w, one histogram at a time.
//
// The method stops at the first write error and returns it.
func (m *Manager[K]) Export(w io.Writer) error {
	b := make([]byte, 0, 1024)

	for _, key := range m.Keys() {
		b = appendExport(b[:0], m.metricName(key), m.entries[key])

		if err := writeBlock(w, key, b); err != nil {
			return err
		}
	}

	return nil
}

func writeBlock[K Key](w io.Writer, key K, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("exporting histogram %s: %w", key, err)
	}
	return nil
}

func (m *Manager[K]) metricName(key K) string {
	return MetricName(m.config.Namespace, key.String())
}

func (m *Manager[K]) logger() *zap.Logger {
	if m.config.Logger != nil {
		return m.config.Logger
	}
	return zap.NewNop()
}
