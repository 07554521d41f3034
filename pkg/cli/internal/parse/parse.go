// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/getmockd/intercept/pkg/mock"
)

// KeyValue parses a "key:value" or "key=value" string.
// If delimiters are provided, uses the first one found; otherwise defaults to ':'.
// Returns the key, value, and a boolean indicating success.
func KeyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	if len(delimiters) == 0 {
		delimiters = []rune{':'}
	}

	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// Headers parses "Name: value" flags into a request header. Repeated
// names accumulate values.
func Headers(flags []string) (mock.Header, error) {
	h := mock.Header{}
	for _, f := range flags {
		name, value, ok := KeyValue(f, ':')
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: want Name: value", f)
		}
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("invalid header name %q", name)
		}
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid value for header %s", name)
		}
		h.Add(name, value)
	}
	return h, nil
}
