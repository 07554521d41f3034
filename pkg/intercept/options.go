package intercept

import (
	"log/slog"
	"net/http"
)

// Options configure a Scope.
type Options struct {
	// StrictHeaderMatching requires every request header to be declared by
	// the matcher, apart from transport-level headers like User-Agent.
	StrictHeaderMatching bool

	// CaseSensitivePaths compares request paths byte for byte.
	CaseSensitivePaths bool

	// AssertFullyConsumedOnClose makes Close fail when a one-shot, limited
	// or required definition was never consumed.
	AssertFullyConsumedOnClose bool

	// AssertOrderOnClose makes Close fail when definitions were first
	// consumed out of registration order.
	AssertOrderOnClose bool

	// AllowUnmatchedPassthrough forwards unmatched requests to Passthrough
	// instead of failing them.
	AllowUnmatchedPassthrough bool

	// Passthrough sends forwarded requests. It defaults to the
	// http.DefaultTransport in place when the scope opened.
	Passthrough http.RoundTripper

	// ReplaceDefaultTransport swaps http.DefaultTransport for the scope's
	// lifetime. It only applies to process-wide scopes opened with Open.
	ReplaceDefaultTransport bool

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}
