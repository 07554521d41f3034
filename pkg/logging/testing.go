package logging

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestHandler returns a text handler that writes each record to tb.Log,
// so log output is attached to the test that produced it.
func NewTestHandler(tb testing.TB, level Level) slog.Handler {
	return slog.NewTextHandler(&testWriter{tb: tb}, &slog.HandlerOptions{Level: level})
}

// NewTestLogger is NewTestHandler wrapped in a logger.
func NewTestLogger(tb testing.TB, level Level) *slog.Logger {
	return slog.New(NewTestHandler(tb, level))
}

type testWriter struct {
	mu sync.Mutex
	tb testing.TB
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tb.Helper()
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
