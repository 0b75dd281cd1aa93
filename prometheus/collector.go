// Package prometheus exposes histstats managers to prometheus, either through
// an HTTP handler serving the text format or as a collector registered on a
// client_golang registry.
package prometheus

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/segmentio/histstats"
)

// Collector adapts a manager to the prometheus.Collector interface.
//
// The set of histograms is read on each collection, histograms initialized
// after the collector was registered are collected as well. For this reason
// the collector describes no metrics and is registered as unchecked.
type Collector[K histstats.Key] struct {
	manager *histstats.SyncManager[K]
	help    string

	mutex sync.Mutex
	descs map[string]*prom.Desc
}

// NewCollector returns a collector for the histograms of manager. The help
// string is attached to every histogram.
func NewCollector[K histstats.Key](manager *histstats.SyncManager[K], help string) *Collector[K] {
	if help == "" {
		help = "Histogram reported by histstats."
	}
	return &Collector[K]{
		manager: manager,
		help:    help,
		descs:   make(map[string]*prom.Desc),
	}
}

// Describe satisfies the prometheus.Collector interface, it sends nothing.
func (c *Collector[K]) Describe(ch chan<- *prom.Desc) {}

// Collect satisfies the prometheus.Collector interface.
func (c *Collector[K]) Collect(ch chan<- prom.Metric) {
	snap := c.manager.Snapshot()

	for _, h := range snap.Histograms {
		buckets := make(map[float64]uint64, len(h.Buckets))
		for _, b := range h.Buckets {
			buckets[b.Bound] = b.Count
		}

		m, err := prom.NewConstHistogram(c.desc(h), h.Count, float64(h.Sum), buckets)
		if err != nil {
			m = prom.NewInvalidMetric(c.desc(h), err)
		}
		ch <- m
	}
}

func (c *Collector[K]) desc(h histstats.HistogramSnapshot) *prom.Desc {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	d := c.descs[h.Metric]
	if d == nil {
		d = prom.NewDesc(h.Metric, c.help, nil, nil)
		c.descs[h.Metric] = d
	}
	return d
}
