package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mock"
)

func TestMatch_BodyConditions(t *testing.T) {
	tests := []struct {
		name    string
		matcher mock.HTTPMatcher
		body    string
		want    bool
	}{
		{"equals", mock.HTTPMatcher{BodyEquals: `{"a":1}`}, `{"a":1}`, true},
		{"equals is byte exact", mock.HTTPMatcher{BodyEquals: `{"a":1}`}, `{"a": 1}`, false},
		{"contains", mock.HTTPMatcher{BodyContains: "ada"}, `{"name":"ada"}`, true},
		{"contains miss", mock.HTTPMatcher{BodyContains: "grace"}, `{"name":"ada"}`, false},
		{"pattern", mock.HTTPMatcher{BodyPattern: `"email":\s*"[^"]+"`}, `{"email": "a@b.test"}`, true},
		{"pattern on xml", mock.HTTPMatcher{BodyPattern: `<user>.*</user>`}, `<user><name>J</name></user>`, true},
		{"pattern miss", mock.HTTPMatcher{BodyPattern: `^\d+$`}, `abc`, false},
		{"all three", mock.HTTPMatcher{BodyEquals: "hello world", BodyContains: "lo w", BodyPattern: "^h.*d$"}, "hello world", true},
		{"empty body", mock.HTTPMatcher{BodyContains: "x"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustCompile(t, &tt.matcher)
			res := m.Match(newRequest(t, "POST", "/", tt.body), Options{})
			assert.Equal(t, tt.want, res.Matched)
		})
	}
}

func TestEvaluate_BodyScoresAndReasons(t *testing.T) {
	m := mustCompile(t, &mock.HTTPMatcher{
		BodyEquals:   "ping",
		BodyContains: "pong",
		BodyPattern:  `^p`,
	})
	fields := m.Evaluate(newRequest(t, "POST", "/", "ping"), Options{})
	require.Len(t, fields, 3)

	assert.Equal(t, "bodyEquals", fields[0].Field)
	assert.True(t, fields[0].Matched)
	assert.Equal(t, ScoreBodyEquals, fields[0].Score)

	assert.Equal(t, "bodyContains", fields[1].Field)
	assert.False(t, fields[1].Matched)
	assert.Zero(t, fields[1].Score)
	assert.Equal(t, `body expected to contain "pong"`, fields[1].Reason)

	assert.Equal(t, "bodyPattern", fields[2].Field)
	assert.True(t, fields[2].Matched)
	assert.Equal(t, ScoreBodyPattern, fields[2].Score)
}
