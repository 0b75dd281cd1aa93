package histstats

import (
	"math"
	"strconv"
)

// LogPrefix is the tag starting every line logged by PrintMetrics.
const LogPrefix = "[metrics_histogram]"

// appendLogLine appends the line reported by PrintMetrics for a histogram:
//
//	[metrics_histogram]|name:1:0,5:1,10:1,+Inf:1 sum=3 count=1|
func appendLogLine(b []byte, name string, h *Histogram) []byte {
	b = append(b, LogPrefix...)
	b = append(b, '|')
	b = append(b, name...)
	b = append(b, ':')
	b = appendHistogram(b, h)
	return append(b, '|')
}

func appendHistogram(b []byte, h *Histogram) []byte {
	var cumulative uint64

	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		b = appendFloat(b, bound)
		b = append(b, ':')
		b = strconv.AppendUint(b, cumulative, 10)
		b = append(b, ',')
	}

	b = append(b, "+Inf:"...)
	b = strconv.AppendUint(b, h.count, 10)
	b = append(b, " sum="...)
	b = appendFloat(b, h.sum)
	b = append(b, " count="...)
	return strconv.AppendUint(b, h.count, 10)
}

// appendExport appends the prometheus text representation of a histogram:
//
//	# TYPE name histogram
//	name_bucket{le="1"} 0
//	name_bucket{le="+Inf"} 1
//	name_sum 3
//	name_count 1
func appendExport(b []byte, name string, h *Histogram) []byte {
	var cumulative uint64

	b = append(b, "# TYPE "...)
	b = append(b, name...)
	b = append(b, " histogram\n"...)

	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		b = appendBucketLine(b, name, bound, cumulative)
	}
	b = appendBucketLine(b, name, math.Inf(+1), h.count)

	b = append(b, name...)
	b = append(b, "_sum "...)
	b = appendFloat(b, h.sum)
	b = append(b, '\n')

	b = append(b, name...)
	b = append(b, "_count "...)
	b = strconv.AppendUint(b, h.count, 10)
	return append(b, '\n')
}

func appendBucketLine(b []byte, name string, le float64, count uint64) []byte {
	b = append(b, name...)
	b = append(b, `_bucket{le="`...)
	b = appendFloat(b, le)
	b = append(b, `"} `...)
	b = strconv.AppendUint(b, count, 10)
	return append(b, '\n')
}

func appendFloat(b []byte, f float64) []byte {
	return strconv.AppendFloat(b, f, 'g', -1, 64)
}

// MetricName returns the name under which the histogram identified by name is
// exported, optionally prefixed by namespace.
//
// Bytes that are not valid in prometheus metric names are replaced by
// underscores.
func MetricName(namespace, name string) string {
	b := make([]byte, 0, len(namespace)+len(name)+1)

	if len(namespace) != 0 {
		b = appendSanitized(b, namespace)
		b = append(b, '_')
	}

	b = appendSanitized(b, name)

	if len(b) != 0 && b[0] >= '0' && b[0] <= '9' {
		b = append([]byte{'_'}, b...)
	}

	return string(b)
}

func appendSanitized(b []byte, s string) []byte {
	for i := range s {
		if c := s[i]; isSafeByte(c) {
			b = append(b, c)
		} else {
			b = append(b, '_')
		}
	}
	return b
}

func isSafeByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == ':'
}
