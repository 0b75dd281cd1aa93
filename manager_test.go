package histstats

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/histstats/histtest"
)

func TestManagerInit(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})

	require.NoError(t, m.Init(histtest.RequestLatency, []float64{0.1, 0.5, 1}))

	h, ok := m.Value(histtest.RequestLatency)
	require.True(t, ok)
	assert.Equal(t, []Bucket{{0.1, 0}, {0.5, 0}, {1, 0}}, h.Buckets())
	assert.Equal(t, 1, m.Len())
}

func TestManagerInitFirstWriteWins(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})

	require.NoError(t, m.Init(histtest.QueueDepth, []float64{1, 2}))
	m.Record(histtest.QueueDepth, 2)

	assert.NoError(t, m.Init(histtest.QueueDepth, []float64{5, 10}))
	assert.NoError(t, m.Init(histtest.QueueDepth, nil))

	assert.Equal(t, []Bucket{{1, 0}, {2, 1}}, m.Buckets(histtest.QueueDepth))
	assert.Equal(t, uint64(1), m.Count(histtest.QueueDepth))
}

func TestManagerInitInvalidBounds(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})

	for _, bounds := range [][]float64{nil, {}, {2, 1}, {1, 1}} {
		for i := 0; i != 2; i++ {
			err := m.Init(histtest.RetryCount, bounds)
			assert.ErrorIs(t, err, ErrInvalidBounds)

			_, ok := m.Value(histtest.RetryCount)
			assert.False(t, ok)
			assert.Equal(t, 0, m.Len())
		}
	}

	// A rejected layout does not prevent a later valid one.
	require.NoError(t, m.Init(histtest.RetryCount, []float64{1, 2, 3}))
	assert.Len(t, m.Buckets(histtest.RetryCount), 3)
}

func TestManagerUninitializedKey(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	require.NoError(t, m.Init(histtest.RequestLatency, []float64{1}))

	m.Record(histtest.ResponseSize, 1)
	m.RecordMany(histtest.ResponseSize, 1, 2, 3)

	_, ok := m.Value(histtest.ResponseSize)
	assert.False(t, ok)
	assert.Equal(t, 0.0, m.Sum(histtest.ResponseSize))
	assert.Equal(t, uint64(0), m.Count(histtest.ResponseSize))
	assert.Empty(t, m.Buckets(histtest.ResponseSize))
	assert.Equal(t, []histtest.Key{histtest.RequestLatency}, m.Keys())
}

func TestManagerZeroValue(t *testing.T) {
	var m Manager[histtest.Key]

	assert.Equal(t, uint64(0), m.Count(histtest.QueueDepth))
	m.PrintMetrics()
	assert.Empty(t, m.AppendExport(nil))

	require.NoError(t, m.Init(histtest.QueueDepth, []float64{1}))
	m.Record(histtest.QueueDepth, 0.5)
	assert.Equal(t, uint64(1), m.Count(histtest.QueueDepth))
}

func TestManagerRecord(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	require.NoError(t, m.Init(histtest.RequestLatency, []float64{1, 5, 10}))

	m.Record(histtest.RequestLatency, 3)

	assert.Equal(t, []Bucket{{1, 0}, {5, 1}, {10, 1}}, m.Buckets(histtest.RequestLatency))
	assert.Equal(t, 3.0, m.Sum(histtest.RequestLatency))
	assert.Equal(t, uint64(1), m.Count(histtest.RequestLatency))

	m.RecordMany(histtest.RequestLatency, 11, math.NaN(), 0)

	h, _ := m.Value(histtest.RequestLatency)
	assert.Equal(t, []Bucket{{1, 1}, {5, 2}, {10, 2}}, m.Buckets(histtest.RequestLatency))
	assert.Equal(t, uint64(4), m.Count(histtest.RequestLatency))
	assert.Equal(t, uint64(2), h.Overflow())
}

func TestManagerPrintMetrics(t *testing.T) {
	logger, logs := histtest.NewLogger()
	m := NewManager(ManagerConfig[histtest.Key]{
		Order:  histtest.Keys,
		Logger: logger,
	})

	// Initialized in a different order than the canonical one.
	require.NoError(t, m.Init(histtest.ResponseSize, []float64{100, 1000}))
	require.NoError(t, m.Init(histtest.QueueDepth, []float64{1, 10}))
	require.NoError(t, m.Init(histtest.RequestLatency, []float64{1, 5, 10}))

	m.Record(histtest.RequestLatency, 3)
	m.RecordMany(histtest.ResponseSize, 50, 5000)

	m.PrintMetrics()

	assert.Equal(t, []string{
		"[metrics_histogram]|queue.depth:1:0,10:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|request.latency:1:0,5:1,10:1,+Inf:1 sum=3 count=1|",
		"[metrics_histogram]|response.size:100:1,1000:1,+Inf:2 sum=5050 count=2|",
	}, histtest.Messages(logs))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "queue.depth", entries[0].ContextMap()["metric"])
}

func TestManagerPrintMetricsDefaultOrder(t *testing.T) {
	logger, logs := histtest.NewLogger()
	m := NewManager(ManagerConfig[histtest.Key]{Logger: logger})

	require.NoError(t, m.Init(histtest.RetryCount, []float64{1}))
	require.NoError(t, m.Init(histtest.RequestLatency, []float64{1}))

	m.PrintMetrics()
	m.PrintMetrics()

	assert.Equal(t, []string{
		"[metrics_histogram]|request.latency:1:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|retry.count:1:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|request.latency:1:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|retry.count:1:0,+Inf:0 sum=0 count=0|",
	}, histtest.Messages(logs))
}

func TestManagerPrintMetricsPartialOrder(t *testing.T) {
	logger, logs := histtest.NewLogger()
	m := NewManager(ManagerConfig[histtest.Key]{
		Order:  []histtest.Key{histtest.RetryCount, histtest.RetryCount, histtest.ResponseSize},
		Logger: logger,
	})

	for _, k := range []histtest.Key{histtest.QueueDepth, histtest.RetryCount, histtest.RequestLatency} {
		require.NoError(t, m.Init(k, []float64{1}))
	}

	m.PrintMetrics()

	assert.Equal(t, []string{
		"[metrics_histogram]|retry.count:1:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|request.latency:1:0,+Inf:0 sum=0 count=0|",
		"[metrics_histogram]|queue.depth:1:0,+Inf:0 sum=0 count=0|",
	}, histtest.Messages(logs))
}

func TestManagerExport(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{Namespace: "app"})
	require.NoError(t, m.Init(histtest.RequestLatency, []float64{1, 5, 10}))
	require.NoError(t, m.Init(histtest.QueueDepth, []float64{0.5}))
	m.Record(histtest.RequestLatency, 3)

	const expected = `# TYPE app_request_latency histogram
app_request_latency_bucket{le="1"} 0
app_request_latency_bucket{le="5"} 1
app_request_latency_bucket{le="10"} 1
app_request_latency_bucket{le="+Inf"} 1
app_request_latency_sum 3
app_request_latency_count 1
# TYPE app_queue_depth histogram
app_queue_depth_bucket{le="0.5"} 0
app_queue_depth_bucket{le="+Inf"} 0
app_queue_depth_sum 0
app_queue_depth_count 0
`

	buf := &bytes.Buffer{}
	require.NoError(t, m.Export(buf))
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, expected, string(m.AppendExport(nil)))
}

func TestManagerExportIsAdditive(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	require.NoError(t, m.Init(histtest.ResponseSize, []float64{10, 100}))
	m.RecordMany(histtest.ResponseSize, 5, 50, 500)

	buf := bytes.NewBufferString("# previous content\n")
	require.NoError(t, m.Export(buf))
	first := buf.String()

	m.Record(histtest.ResponseSize, 7)
	require.NoError(t, m.Export(buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(first)))

	exported, err := ParseExport(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, exported, 2)

	assert.Equal(t, ExportedHistogram{
		Name:    "response_size",
		Buckets: []Bucket{{10, 1}, {100, 2}},
		Sum:     555,
		Count:   3,
		inf:     3,
		hasInf:  true,
	}, exported[0])

	assert.Equal(t, m.Buckets(histtest.ResponseSize), exported[1].Buckets)
	assert.Equal(t, m.Sum(histtest.ResponseSize), exported[1].Sum)
	assert.Equal(t, m.Count(histtest.ResponseSize), exported[1].Count)
}

func TestManagerExportWriteError(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	for _, k := range histtest.Keys {
		require.NoError(t, m.Init(k, []float64{1}))
	}

	w := &histtest.FailingWriter{N: 1}
	err := m.Export(w)

	assert.ErrorIs(t, err, histtest.ErrWrite)
	assert.Contains(t, err.Error(), "response.size")
	assert.Equal(t, 2, w.Calls())

	exported, err := ParseExport(w.Bytes())
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "request_latency", exported[0].Name)
}

func TestManagerInitErrorWrapsKey(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	err := m.Init(histtest.QueueDepth, []float64{3, 2})

	var e *InvalidBoundsError
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 1, e.Index)
	assert.Contains(t, err.Error(), "queue.depth")
}

type nameKey string

func (k nameKey) String() string { return string(k) }

func TestManagerInitNameConflict(t *testing.T) {
	m := NewManager(ManagerConfig[nameKey]{Namespace: "app"})

	require.NoError(t, m.Init("a.b", []float64{1}))
	err := m.Init("a_b", []float64{1})
	assert.ErrorIs(t, err, ErrNameConflict)
	assert.Contains(t, err.Error(), "app_a_b")

	_, ok := m.Value("a_b")
	assert.False(t, ok)
	assert.Equal(t, []nameKey{"a.b"}, m.Keys())

	// Re-initializing the key owning the name is still a no-op.
	require.NoError(t, m.Init("a.b", []float64{5}))

	exported, err := ParseExport(m.AppendExport(nil))
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "app_a_b", exported[0].Name)
	assert.Equal(t, []Bucket{{1, 0}}, exported[0].Buckets)
}

func TestManagerValueIsReadOnly(t *testing.T) {
	m := NewManager(ManagerConfig[histtest.Key]{})
	require.NoError(t, m.Init(histtest.ResponseSize, []float64{10, 100}))

	v, ok := m.Value(histtest.ResponseSize)
	require.True(t, ok)

	bounds := v.Bounds()
	bounds[0] = 1000
	assert.Equal(t, []float64{10, 100}, v.Bounds())

	m.RecordMany(histtest.ResponseSize, 5, 50, 500)
	assert.Equal(t, []Bucket{{10, 1}, {100, 2}}, v.Buckets())
	assert.Equal(t, uint64(3), v.Count())
	assert.Equal(t, 555.0, v.Sum())
	assert.Equal(t, "10:1,100:2,+Inf:3 sum=555 count=3", v.String())
}
