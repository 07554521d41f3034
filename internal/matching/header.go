package matching

import (
	"net/textproto"
	"slices"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// MatchHeaderPattern reports whether any value of the named header fits
// pattern. See matchValuePattern for the pattern forms.
func MatchHeaderPattern(name, pattern string, headers mock.Header) bool {
	return slices.ContainsFunc(headers.Values(name), func(v string) bool {
		return matchValuePattern(pattern, v)
	})
}

// matchValuePattern reports whether actual fits pattern: "*" accepts any
// value, "abc*" is a prefix, "*abc" a suffix and "*abc*" a substring.
// Any other pattern must equal actual.
func matchValuePattern(pattern, actual string) bool {
	if pattern == "*" {
		return true
	}
	core, lead := strings.CutPrefix(pattern, "*")
	core, trail := strings.CutSuffix(core, "*")
	switch {
	case lead && trail:
		return strings.Contains(actual, core)
	case lead:
		return strings.HasSuffix(actual, core)
	case trail:
		return strings.HasPrefix(actual, core)
	default:
		return actual == pattern
	}
}

// DefaultIgnoredHeaders are never required to be declared in strict header
// mode. Transports add them on their own.
var DefaultIgnoredHeaders = []string{
	"Accept-Encoding",
	"Connection",
	"Content-Length",
	"Host",
	"User-Agent",
}

// undeclaredHeaders returns the request headers that are neither declared
// by the matcher nor ignored, in sorted order.
func undeclaredHeaders(declared map[string]string, ignored []string, headers mock.Header) []string {
	known := make(map[string]bool, len(declared)+len(ignored))
	for name := range declared {
		known[textproto.CanonicalMIMEHeaderKey(name)] = true
	}
	for _, name := range ignored {
		known[textproto.CanonicalMIMEHeaderKey(name)] = true
	}

	var extra []string
	for _, name := range headers.Names() {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return extra
}
