package histstats

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExportedHistogram is a histogram decoded from the text produced by Export.
type ExportedHistogram struct {
	Name    string
	Buckets []Bucket // cumulative, +Inf bucket excluded
	Sum     float64
	Count   uint64

	inf    uint64
	hasInf bool
}

// ParseExport decodes the histograms found in b, which is expected to hold
// the output of one or more calls to Export or AppendExport.
//
// Histograms are returned in the order they first appear in b. When the same
// histogram is exported multiple times, each occurrence is returned.
func ParseExport(b []byte) ([]ExportedHistogram, error) {
	var list []ExportedHistogram
	var scanner = bufio.NewScanner(bytes.NewReader(b))
	var lineno int

	// Each # TYPE line starts a new histogram, lines without a preceding type
	// are attached to the last histogram of the same name.
	current := func(name string, fresh bool) *ExportedHistogram {
		if n := len(list); !fresh && n != 0 && list[n-1].Name == name {
			return &list[n-1]
		}
		list = append(list, ExportedHistogram{Name: name})
		return &list[len(list)-1]
	}

	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())

		if len(line) == 0 {
			continue
		}

		if line[0] == '#' {
			if name, ok := parseTypeLine(line); ok {
				current(name, true)
			}
			continue
		}

		head, val := split(line, ' ')
		if len(head) == 0 || len(val) == 0 {
			return nil, fmt.Errorf("histstats: line %d: %q is not a valid sample", lineno, line)
		}

		metric, labels := head, ""
		if i := strings.IndexByte(head, '{'); i >= 0 {
			if !strings.HasSuffix(head, "}") {
				return nil, fmt.Errorf("histstats: line %d: %q has malformed labels", lineno, line)
			}
			metric, labels = head[:i], head[i+1:len(head)-1]
		}

		switch {
		case strings.HasSuffix(metric, "_bucket"):
			le, err := parseLe(labels)
			if err != nil {
				return nil, fmt.Errorf("histstats: line %d: %w", lineno, err)
			}
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("histstats: line %d: %q has a malformed bucket count", lineno, line)
			}
			h := current(strings.TrimSuffix(metric, "_bucket"), false)
			if math.IsInf(le, +1) {
				h.inf, h.hasInf = n, true
			} else {
				h.Buckets = append(h.Buckets, Bucket{Bound: le, Count: n})
			}

		case strings.HasSuffix(metric, "_sum"):
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("histstats: line %d: %q has a malformed sum", lineno, line)
			}
			current(strings.TrimSuffix(metric, "_sum"), false).Sum = f

		case strings.HasSuffix(metric, "_count"):
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("histstats: line %d: %q has a malformed count", lineno, line)
			}
			current(strings.TrimSuffix(metric, "_count"), false).Count = n

		default:
			return nil, fmt.Errorf("histstats: line %d: %q is not a histogram sample", lineno, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		if h := &list[i]; h.hasInf && h.inf != h.Count {
			return nil, fmt.Errorf("histstats: %s: +Inf bucket count %d does not match total count %d", h.Name, h.inf, h.Count)
		}
	}

	return list, nil
}

func parseTypeLine(line string) (name string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 4 && fields[1] == "TYPE" && fields[3] == "histogram" {
		return fields[2], true
	}
	return "", false
}

func parseLe(labels string) (float64, error) {
	for len(labels) != 0 {
		var label string
		label, labels = nextToken(labels, ',')

		name, value := nextToken(label, '=')
		if name != "le" {
			continue
		}

		value, err := strconv.Unquote(value)
		if err != nil {
			return 0, fmt.Errorf("%q has a malformed le label", label)
		}
		return strconv.ParseFloat(value, 64)
	}
	return 0, fmt.Errorf("bucket has no le label")
}

func nextToken(s string, b byte) (token string, next string) {
	if off := strings.IndexByte(s, b); off >= 0 {
		token, next = s[:off], s[off+1:]
	} else {
		token = s
	}
	return
}

func split(s string, b byte) (head string, tail string) {
	if off := strings.LastIndexByte(s, b); off >= 0 {
		head, tail = s[:off], s[off+1:]
	} else {
		head = s
	}
	return
}
