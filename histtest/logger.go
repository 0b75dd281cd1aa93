package histtest

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a logger recording every entry at debug level or above,
// and the observer giving access to the recorded entries.
func NewLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// Messages returns the messages of the entries recorded by logs at info
// level, in the order they were logged.
func Messages(logs *observer.ObservedLogs) []string {
	entries := logs.FilterLevelExact(zapcore.InfoLevel).All()
	messages := make([]string, len(entries))

	for i, e := range entries {
		messages[i] = e.Message
	}

	return messages
}

// ErrWrite is returned by FailingWriter.
var ErrWrite = errors.New("histtest: write failed")

// FailingWriter is an io.Writer accepting N writes before failing with
// ErrWrite.
type FailingWriter struct {
	N     int32
	calls int32
	data  []byte
}

func (w *FailingWriter) Write(b []byte) (int, error) {
	if atomic.AddInt32(&w.calls, 1) > w.N {
		return 0, ErrWrite
	}
	w.data = append(w.data, b...)
	return len(b), nil
}

// Bytes returns the bytes accepted by the writer.
func (w *FailingWriter) Bytes() []byte { return w.data }

// Calls returns the number of times Write was invoked.
func (w *FailingWriter) Calls() int { return int(atomic.LoadInt32(&w.calls)) }
