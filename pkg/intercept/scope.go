package intercept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
)

var (
	// globalSlot admits one process-wide scope at a time.
	globalSlot = make(chan struct{}, 1)

	globalMu sync.RWMutex
	global   *Scope
)

type scopeKey struct{}

// Scope routes intercepted requests to a pool until it is closed.
type Scope struct {
	pool *engine.Pool
	opts Options
	log  *slog.Logger

	passthrough http.RoundTripper
	active      atomic.Bool
	global      bool
	// restoreDefault is the http.DefaultTransport replaced by Open.
	restoreDefault http.RoundTripper

	closeOnce sync.Once
	closeErr  error
}

var _ http.RoundTripper = (*Scope)(nil)

// Bind returns a context carrying a new scope for pool. Clients obtained
// with NewClient from that context, and requests sent with that context
// through a Transport, resolve against pool.
func Bind(ctx context.Context, pool *engine.Pool, opts Options) (context.Context, *Scope, error) {
	if pool == nil {
		return ctx, nil, errNilPool
	}
	s := newScope(pool, opts)
	s.log.Debug("scope bound to context", "definitions", pool.Len())
	return context.WithValue(ctx, scopeKey{}, s), s, nil
}

// Open installs a process-wide scope for pool. If another process-wide
// scope is open, Open waits for it to close or for ctx to be done.
func Open(ctx context.Context, pool *engine.Pool, opts Options) (*Scope, error) {
	if pool == nil {
		return nil, errNilPool
	}
	select {
	case globalSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for the process-wide scope: %w", ctx.Err())
	}

	s := newScope(pool, opts)
	s.global = true

	globalMu.Lock()
	if opts.ReplaceDefaultTransport {
		s.restoreDefault = http.DefaultTransport
		http.DefaultTransport = &Transport{}
	}
	global = s
	globalMu.Unlock()

	s.log.Debug("process-wide scope opened",
		"definitions", pool.Len(),
		"replaceDefaultTransport", opts.ReplaceDefaultTransport,
	)
	return s, nil
}

func newScope(pool *engine.Pool, opts Options) *Scope {
	s := &Scope{
		pool:        pool,
		opts:        opts,
		log:         opts.Logger,
		passthrough: opts.Passthrough,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.passthrough == nil {
		s.passthrough = realTransport()
	}

	var poolOpts []engine.Option
	if opts.StrictHeaderMatching {
		poolOpts = append(poolOpts, engine.WithStrictHeaders(true))
	}
	if opts.CaseSensitivePaths {
		poolOpts = append(poolOpts, engine.WithCaseSensitivePaths(true))
	}
	if len(poolOpts) > 0 {
		pool.Configure(poolOpts...)
	}

	s.active.Store(true)
	return s
}

// realTransport returns http.DefaultTransport, or the transport it
// replaced when a process-wide scope swapped it.
func realTransport() http.RoundTripper {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if _, swapped := http.DefaultTransport.(*Transport); swapped && global != nil && global.restoreDefault != nil {
		return global.restoreDefault
	}
	return http.DefaultTransport
}

// Current returns the open process-wide scope, or nil.
func Current() *Scope {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// FromContext returns the scope bound to ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Pool returns the pool the scope resolves against.
func (s *Scope) Pool() *engine.Pool {
	return s.pool
}

// Active reports whether the scope is still open.
func (s *Scope) Active() bool {
	return s.active.Load()
}

// Client returns a client whose requests resolve against this scope. Once
// the scope closes, its requests fail with ErrScopeInactive.
func (s *Scope) Client() *http.Client {
	return &http.Client{Transport: s}
}

// Context returns a copy of parent bound to this scope.
func (s *Scope) Context(parent context.Context) context.Context {
	return context.WithValue(parent, scopeKey{}, s)
}

// Close restores the state from before the scope opened and runs the
// teardown assertions. Restoration happens exactly once; later calls
// return the first result.
func (s *Scope) Close() error {
	s.closeOnce.Do(func() {
		s.active.Store(false)

		if s.global {
			globalMu.Lock()
			if s.restoreDefault != nil {
				http.DefaultTransport = s.restoreDefault
			}
			if global == s {
				global = nil
			}
			globalMu.Unlock()
			<-globalSlot
		}

		var errs []error
		if s.opts.AssertFullyConsumedOnClose {
			if err := s.pool.AssertFullyConsumed(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.opts.AssertOrderOnClose {
			if err := s.pool.AssertOrdered(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
		s.log.Debug("scope closed", "global", s.global, "failed", s.closeErr != nil)
	})
	return s.closeErr
}

// RoundTrip resolves req against the pool.
func (s *Scope) RoundTrip(req *http.Request) (*http.Response, error) {
	if !s.Active() {
		closeBody(req)
		return nil, fmt.Errorf("%w: %s %s", ErrScopeInactive, req.Method, req.URL)
	}

	// FromHTTP drains the body and puts back a replayable copy. Work on a
	// shallow copy so req itself is left as the caller built it.
	captured := *req
	mreq, err := mock.FromHTTP(&captured)
	if err != nil {
		closeBody(req)
		return nil, err
	}
	if mreq.Scheme == "" {
		mreq.Scheme = "http"
	}

	resp, err := s.pool.Resolve(req.Context(), mreq)
	var noMatch *engine.NoMatchError
	if errors.As(err, &noMatch) {
		if s.opts.AllowUnmatchedPassthrough {
			return s.forward(req, &captured, noMatch)
		}
		return nil, &UnmatchedError{NoMatch: noMatch}
	}
	if err != nil {
		return nil, err
	}

	if err := sleep(req.Context(), resp.Delay); err != nil {
		return nil, err
	}
	return resp.HTTP(req), nil
}

func (s *Scope) forward(req, captured *http.Request, noMatch *engine.NoMatchError) (*http.Response, error) {
	s.log.Info("forwarding unmatched request", "method", req.Method, "url", req.URL.String())

	out := req.Clone(req.Context())
	out.Body = captured.Body
	out.GetBody = nil
	resp, err := s.passthrough.RoundTrip(out)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	s.pool.MarkForwarded(noMatch, status, err)
	return resp, err
}

// Transport resolves each request against the scope bound to the request
// context, or else the process-wide scope. A context bound to a closed
// scope never falls back to the process-wide one. Requests with no usable
// scope fail with ErrScopeInactive.
type Transport struct{}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if s := FromContext(req.Context()); s != nil {
		return s.RoundTrip(req)
	}
	if s := Current(); s != nil {
		return s.RoundTrip(req)
	}
	closeBody(req)
	return nil, fmt.Errorf("%w: no scope for %s %s", ErrScopeInactive, req.Method, req.URL)
}

// NewClient is the client construction entry point for code under test. It
// returns a client wired to the scope bound to ctx, else to the
// process-wide scope, else an ordinary client using http.DefaultTransport.
// A ctx bound to a closed scope yields a client whose requests fail with
// ErrScopeInactive.
func NewClient(ctx context.Context) *http.Client {
	if s := FromContext(ctx); s != nil {
		return s.Client()
	}
	if s := Current(); s != nil {
		return s.Client()
	}
	return &http.Client{}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
