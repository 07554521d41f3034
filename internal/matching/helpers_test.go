package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mock"
)

// newRequest builds a request for target with optional header pairs.
func newRequest(t *testing.T, method, target, body string, headers ...string) *mock.Request {
	t.Helper()
	r, err := mock.NewRequest(method, target)
	require.NoError(t, err)
	r.Body = mock.Body(body)
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Add(headers[i], headers[i+1])
	}
	return r
}

func mustCompile(t *testing.T, m *mock.HTTPMatcher) *Matcher {
	t.Helper()
	c, err := Compile(m)
	require.NoError(t, err)
	return c
}
