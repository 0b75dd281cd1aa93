// Package histtest provides helpers for testing code that records histograms.
package histtest

// Key is a small key universe usable in tests.
type Key uint8

const (
	RequestLatency Key = iota
	ResponseSize
	QueueDepth
	RetryCount
)

// Keys lists every Key in canonical order. The order intentionally differs
// from the numeric order of the keys.
var Keys = []Key{QueueDepth, RequestLatency, ResponseSize, RetryCount}

func (k Key) String() string {
	switch k {
	case RequestLatency:
		return "request.latency"
	case ResponseSize:
		return "response.size"
	case QueueDepth:
		return "queue.depth"
	case RetryCount:
		return "retry.count"
	default:
		return "unknown"
	}
}
