package histstats

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/fasthash/fnv1a"
	"go.uber.org/zap"
)

// DefaultReportInterval is the interval at which reporters run when none was
// configured.
const DefaultReportInterval = 10 * time.Second

// ReporterConfig carries the different configuration values that can be set
// when creating a new reporter.
type ReporterConfig struct {
	// Interval between two reports.
	Interval time.Duration

	// When set, the prometheus text representation of the histograms is
	// written to Output on each report.
	Output io.Writer

	// When true, lines of histograms that did not change since the previous
	// report are not logged again.
	OnlyChanged bool

	// Logger receives the reporter's own errors. Histogram lines are logged on
	// the logger of the manager.
	Logger *zap.Logger

	// Clock drives the reporter's ticker, the real clock is used when nil.
	Clock clockwork.Clock
}

// Reporter periodically logs the lines of a manager's histograms, and
// optionally exports them to a writer.
type Reporter[K Key] struct {
	manager *SyncManager[K]
	config  ReporterConfig

	mutex sync.Mutex
	seen  map[K]uint64 // fingerprints of the last lines logged
}

// NewReporter creates a reporter for manager configured with config.
func NewReporter[K Key](manager *SyncManager[K], config ReporterConfig) *Reporter[K] {
	if config.Interval <= 0 {
		config.Interval = DefaultReportInterval
	}

	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Reporter[K]{
		manager: manager,
		config:  config,
		seen:    make(map[K]uint64),
	}
}

// Run reports on every tick of the configured interval, until ctx is
// canceled.
//
// Export errors are logged and do not stop the reporter, the next tick retries.
func (r *Reporter[K]) Run(ctx context.Context) error {
	ticker := r.config.Clock.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.Chan():
			if err := r.Report(); err != nil {
				r.config.Logger.Warn("histogram export failed", zap.Error(err))
			}
		}
	}
}

// Report runs a single report.
func (r *Reporter[K]) Report() error {
	var export []byte

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.manager.Do(func(m *Manager[K]) {
		logger := m.logger()

		m.eachLine(func(key K, line []byte) {
			if r.config.OnlyChanged {
				sum := fnv1a.HashBytes64(line)
				if last, ok := r.seen[key]; ok && last == sum {
					return
				}
				r.seen[key] = sum
			}
			logger.Info(string(line), zap.String("metric", key.String()))
		})

		if r.config.Output != nil {
			export = m.AppendExport(make([]byte, 0, 1024))
		}
	})

	if r.config.Output == nil {
		return nil
	}

	n, err := r.config.Output.Write(export)
	r.config.Logger.Debug("histograms exported", zap.Int("bytes", n))
	return err
}
