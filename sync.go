package histstats

import (
	"io"
	"sync"
)

// SyncManager is a Manager guarded by a mutex, it is safe to use from
// multiple goroutines.
type SyncManager[K Key] struct {
	mutex   sync.Mutex
	manager Manager[K]
}

// NewSyncManager creates and returns a synchronized manager configured with
// config.
func NewSyncManager[K Key](config ManagerConfig[K]) *SyncManager[K] {
	return &SyncManager[K]{
		manager: Manager[K]{
			config:  config,
			entries: make(map[K]*Histogram),
			names:   make(map[string]K),
		},
	}
}

// Do calls fn with exclusive access to the underlying manager. The manager and
// the histograms it holds must not be retained after fn returns.
func (s *SyncManager[K]) Do(fn func(*Manager[K])) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	fn(&s.manager)
}

func (s *SyncManager[K]) Init(key K, bounds []float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Init(key, bounds)
}

func (s *SyncManager[K]) Record(key K, value float64) {
	s.mutex.Lock()
	s.manager.Record(key, value)
	s.mutex.Unlock()
}

func (s *SyncManager[K]) RecordMany(key K, values ...float64) {
	s.mutex.Lock()
	s.manager.RecordMany(key, values...)
	s.mutex.Unlock()
}

func (s *SyncManager[K]) Sum(key K) float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Sum(key)
}

func (s *SyncManager[K]) Count(key K) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Count(key)
}

func (s *SyncManager[K]) Buckets(key K) []Bucket {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Buckets(key)
}

func (s *SyncManager[K]) Keys() []K {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Keys()
}

func (s *SyncManager[K]) PrintMetrics() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.manager.PrintMetrics()
}

func (s *SyncManager[K]) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.Snapshot()
}

func (s *SyncManager[K]) AppendExport(b []byte) []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.manager.AppendExport(b)
}

// Export writes the prometheus text representation of the histograms to w,
// one histogram at a time, and stops at the first write error.
//
// The histograms are rendered while holding the lock and written after
// releasing it, so a slow writer does not block recording.
func (s *SyncManager[K]) Export(w io.Writer) error {
	var b = make([]byte, 0, 1024)
	var keys []K
	var ends []int

	s.mutex.Lock()
	keys = s.manager.Keys()
	ends = make([]int, len(keys))

	for i, key := range keys {
		b = appendExport(b, s.manager.metricName(key), s.manager.entries[key])
		ends[i] = len(b)
	}
	s.mutex.Unlock()

	start := 0
	for i, key := range keys {
		if err := writeBlock(w, key, b[start:ends[i]]); err != nil {
			return err
		}
		start = ends[i]
	}

	return nil
}

// ExportJSON writes the JSON representation of a snapshot of the histograms
// to w.
func (s *SyncManager[K]) ExportJSON(w io.Writer) error {
	return s.Snapshot().WriteJSON(w)
}
