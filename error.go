package histstats

import (
	"bytes"
	"errors"
	"strconv"
)

// ErrInvalidBounds is matched by errors returned when creating a histogram
// with bucket bounds that cannot be used.
var ErrInvalidBounds = errors.New("invalid histogram bounds")

// ErrNameConflict is matched by errors returned when initializing a histogram
// whose export name is already used by another key.
var ErrNameConflict = errors.New("histogram name already in use")

// InvalidBoundsError describes why a list of bucket bounds was rejected.
type InvalidBoundsError struct {
	// The rejected bounds.
	Bounds []float64

	// Index of the offending bound, -1 when the list itself is at fault.
	Index int

	// Human-readable reason for the rejection.
	Reason string
}

func (e *InvalidBoundsError) Error() string {
	b := make([]byte, 0, 64)
	b = append(b, ErrInvalidBounds.Error()...)

	if e.Index >= 0 {
		b = append(b, " at index "...)
		b = strconv.AppendInt(b, int64(e.Index), 10)
	}

	b = append(b, ": "...)
	b = append(b, e.Reason...)
	return string(b)
}

func (e *InvalidBoundsError) Unwrap() error { return ErrInvalidBounds }

type multiError []error

func appendError(list error, errors ...error) error {
	for _, err := range errors {
		if err != nil {
			if list == nil {
				list = err
			} else if l, ok := list.(multiError); ok {
				if e, ok := err.(multiError); ok {
					list = append(l, e...)
				} else {
					list = append(l, err)
				}
			} else {
				list = multiError{list, err}
			}
		}
	}
	return list
}

func (m multiError) Error() string {
	switch len(m) {
	case 0:
		return ""
	case 1:
		return m[0].Error()
	default:
		b := &bytes.Buffer{}
		b.Grow(100 * len(m))

		for _, e := range m {
			b.WriteString(e.Error())
			b.WriteByte('\n')
		}

		return b.String()
	}
}

// Unwrap lets errors.Is and errors.As inspect every aggregated error.
func (m multiError) Unwrap() []error { return m }
