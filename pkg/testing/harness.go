package testing

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/intercept"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/requestlog"
)

// Harness registers mocks for one test and intercepts the HTTP clients the
// code under test obtains from it. The scope is closed by t.Cleanup, so
// it is released however the test ends.
type Harness struct {
	t         testing.TB
	mu        sync.Mutex
	defs      []*mock.Definition
	providers []mock.Provider
	opts      intercept.Options
	global    bool
	logLevel  logging.Level
	handlers  []slog.Handler

	pool    *engine.Pool
	scope   *intercept.Scope
	ctx     context.Context
	started bool
	stopped bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithProviders adds providers whose definitions come before the ones
// registered with Mock.
func WithProviders(providers ...mock.Provider) Option {
	return func(h *Harness) {
		h.providers = append(h.providers, providers...)
	}
}

// WithScopeOptions sets the interception options.
func WithScopeOptions(opts intercept.Options) Option {
	return func(h *Harness) {
		h.opts = opts
	}
}

// Global opens a process-wide scope that also replaces
// http.DefaultTransport. Global harnesses run one at a time.
func Global() Option {
	return func(h *Harness) {
		h.global = true
		h.opts.ReplaceDefaultTransport = true
	}
}

// WithLogLevel sets the level of engine logs written to the test log.
func WithLogLevel(level logging.Level) Option {
	return func(h *Harness) {
		h.logLevel = level
	}
}

// WithLogHandler also sends engine and scope logs to handler, at the
// levels handler enables.
func WithLogHandler(handler slog.Handler) Option {
	return func(h *Harness) {
		h.handlers = append(h.handlers, handler)
	}
}

// New creates a harness. By default every limited mock must be consumed
// before the test ends.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	h := &Harness{
		t:        t,
		opts:     intercept.Options{AssertFullyConsumedOnClose: true},
		logLevel: logging.LevelWarn,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mock starts a definition for method and path. Finish it with Reply.
// Mocks must be registered before Start.
func (h *Harness) Mock(method, path string) *MockBuilder {
	h.t.Helper()
	return &MockBuilder{
		harness: h,
		def: &mock.Definition{
			Matcher: &mock.HTTPMatcher{Method: strings.ToUpper(method), Path: path},
		},
		resp: &mock.HTTPResponse{StatusCode: http.StatusOK},
	}
}

func (h *Harness) addMock(def *mock.Definition) {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		h.t.Errorf("mock %s registered after Start; register mocks first", def.Describe())
		return
	}
	h.defs = append(h.defs, def)
}

// Start builds the pool and opens the scope. It returns the context to
// hand to code under test; NewClient(ctx) yields an intercepting client.
func (h *Harness) Start() context.Context {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return h.ctx
	}

	providers := append([]mock.Provider{}, h.providers...)
	providers = append(providers, mock.Static("harness", h.defs...))
	logger := slog.New(logging.Tee(append([]slog.Handler{logging.NewTestHandler(h.t, h.logLevel)}, h.handlers...)...))
	if h.opts.Logger == nil {
		h.opts.Logger = logger
	}
	pool, err := engine.Build(providers, engine.WithLogger(logger))
	if err != nil {
		h.t.Fatalf("building mock pool: %v", err)
	}

	ctx := h.t.Context()
	var scope *intercept.Scope
	if h.global {
		scope, err = intercept.Open(ctx, pool, h.opts)
	} else {
		ctx, scope, err = intercept.Bind(ctx, pool, h.opts)
	}
	if err != nil {
		h.t.Fatalf("opening interception scope: %v", err)
	}

	h.pool, h.scope, h.ctx = pool, scope, ctx
	h.started = true
	h.t.Cleanup(h.Stop)
	return ctx
}

// Stop closes the scope and reports teardown failures on the test. It is
// registered with t.Cleanup by Start and may be called earlier.
func (h *Harness) Stop() {
	h.t.Helper()
	h.mu.Lock()
	if h.scope == nil || h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	scope := h.scope
	h.mu.Unlock()

	if err := scope.Close(); err != nil {
		h.t.Errorf("%v", err)
	}
}

// Context returns the context bound to the scope, or nil before Start.
func (h *Harness) Context() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}

// Client returns an intercepting client, starting the harness if needed.
func (h *Harness) Client() *http.Client {
	h.t.Helper()
	return intercept.NewClient(h.Start())
}

// Pool returns the pool, or nil before Start.
func (h *Harness) Pool() *engine.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool
}

// Reset clears consumption counters and recorded requests. Mocks stay
// registered.
func (h *Harness) Reset() {
	if pool := h.Pool(); pool != nil {
		pool.Reset()
	}
}

// Requests returns recorded requests, newest first.
func (h *Harness) Requests() []RequestLog {
	pool := h.Pool()
	if pool == nil {
		return nil
	}
	entries := pool.Journal().List(nil)
	out := make([]RequestLog, len(entries))
	for i, e := range entries {
		out[i] = newRequestLog(e)
	}
	return out
}

// Unmatched returns the requests no mock answered, oldest first.
func (h *Harness) Unmatched() []RequestLog {
	pool := h.Pool()
	if pool == nil {
		return nil
	}
	entries := pool.Unmatched()
	out := make([]RequestLog, len(entries))
	for i, e := range entries {
		out[i] = newRequestLog(e)
	}
	return out
}

// AssertCalled asserts that an endpoint was answered at least once.
func (h *Harness) AssertCalled(t testing.TB, method, path string) {
	t.Helper()
	if h.countCalls(method, path) == 0 {
		t.Errorf("expected %s %s to be called, but it was not called", method, path)
	}
}

// AssertCalledTimes asserts that an endpoint was answered exactly n times.
func (h *Harness) AssertCalledTimes(t testing.TB, method, path string, times int) {
	t.Helper()
	if count := h.countCalls(method, path); count != times {
		t.Errorf("expected %s %s to be called %d times, but was called %d times",
			method, path, times, count)
	}
}

// AssertNotCalled asserts that an endpoint was never answered.
func (h *Harness) AssertNotCalled(t testing.TB, method, path string) {
	t.Helper()
	if count := h.countCalls(method, path); count > 0 {
		t.Errorf("expected %s %s to not be called, but it was called %d times",
			method, path, count)
	}
}

// AssertNoUnmatched fails the test for every request no mock answered.
func (h *Harness) AssertNoUnmatched(t testing.TB) {
	t.Helper()
	for _, r := range h.Unmatched() {
		t.Errorf("unmatched request %s %s", r.Method, r.Path)
	}
}

// AssertAllConsumed fails the test if a limited or required mock was
// never consumed.
func (h *Harness) AssertAllConsumed(t testing.TB) {
	t.Helper()
	if pool := h.Pool(); pool != nil {
		if err := pool.AssertFullyConsumed(); err != nil {
			t.Errorf("%v", err)
		}
	}
}

func (h *Harness) countCalls(method, path string) int {
	pool := h.Pool()
	if pool == nil {
		return 0
	}
	entries := pool.Journal().List(&requestlog.Filter{
		Method:  strings.ToUpper(method),
		Outcome: requestlog.OutcomeMatched,
	})
	count := 0
	for _, e := range entries {
		if matchesPath(e.Path, path) {
			count++
		}
	}
	return count
}

// matchesPath checks if a request path matches the expected path.
// Segments written as {name} match any value.
func matchesPath(actual, expected string) bool {
	if actual == expected {
		return true
	}

	actualParts := strings.Split(actual, "/")
	expectedParts := strings.Split(expected, "/")
	if len(actualParts) != len(expectedParts) {
		return false
	}

	for i := range expectedParts {
		exp := expectedParts[i]
		if strings.HasPrefix(exp, "{") && strings.HasSuffix(exp, "}") {
			continue
		}
		if exp != actualParts[i] {
			return false
		}
	}
	return true
}
