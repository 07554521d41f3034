package engine

import (
	"log/slog"

	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/template"
)

// DefaultNearMissLimit bounds the near-misses carried by a NoMatchError.
const DefaultNearMissLimit = 5

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// WithCaseSensitivePaths compares request paths byte for byte.
func WithCaseSensitivePaths(enabled bool) Option {
	return func(p *Pool) {
		p.match.CaseSensitivePaths = enabled
	}
}

// WithStrictHeaders requires every request header to be declared by the
// matcher. ignored replaces the default list of headers exempt from the
// check, such as User-Agent and Content-Length.
func WithStrictHeaders(enabled bool, ignored ...string) Option {
	return func(p *Pool) {
		p.match.StrictHeaders = enabled
		if len(ignored) > 0 {
			p.match.IgnoredHeaders = ignored
		}
	}
}

// WithJournal replaces the in-memory request journal.
func WithJournal(store requestlog.Store) Option {
	return func(p *Pool) {
		if store != nil {
			p.journal = store
		}
	}
}

// WithTemplateEngine sets the engine that renders templated responses.
func WithTemplateEngine(e *template.Engine) Option {
	return func(p *Pool) {
		if e != nil {
			p.templates = e
		}
	}
}

// WithNearMissLimit bounds the near-misses reported per unmatched request.
// Zero or less reports all of them.
func WithNearMissLimit(n int) Option {
	return func(p *Pool) {
		p.nearMissLimit = n
	}
}
