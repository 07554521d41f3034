package template

import (
	mathrand "math/rand/v2"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mock"
)

func newTestContext(t *testing.T, method, target, body string, headers ...string) *Context {
	t.Helper()
	r, err := mock.NewRequest(method, target)
	require.NoError(t, err)
	r.Body = mock.Body(body)
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Add(headers[i], headers[i+1])
	}
	return NewContext(r)
}

func TestProcess_RequestVariables(t *testing.T) {
	engine := New()
	ctx := newTestContext(t, "POST", "https://api.example.com/users/42?q=go&q=rust&page=2",
		`{"user": {"name": "Ada", "tags": ["x", "y"]}, "count": 3, "ok": true}`,
		"X-Request-Id", "abc-123")
	ctx.SetPathParams(map[string]string{"id": "42"})
	ctx.SetPathPatternCaptures(map[string]string{"slug": "forty-two"})
	ctx.SetJSONPathMatches(map[string]interface{}{"user_name": "Ada", "count": float64(3)})

	tests := []struct {
		template string
		want     string
	}{
		{"{{request.method}}", "POST"},
		{"{{request.host}}", "api.example.com"},
		{"{{request.path}}", "/users/42"},
		{"{{request.url}}", "https://api.example.com/users/42?q=go&q=rust&page=2"},
		{"{{request.pathParam.id}}", "42"},
		{"{{request.pathPattern.slug}}", "forty-two"},
		{"{{request.query.q}}", "go"},
		{"{{request.query.page}}", "2"},
		{"{{request.query.missing}}", ""},
		{"{{request.header.x-request-id}}", "abc-123"},
		{"{{request.header.X-Missing}}", ""},
		{"{{request.body.user.name}}", "Ada"},
		{"{{request.body.user.tags.1}}", "y"},
		{"{{request.body.user.tags.5}}", ""},
		{"{{request.body.user.tags}}", `["x","y"]`},
		{"{{request.body.count}}", "3"},
		{"{{request.body.ok}}", "true"},
		{"{{request.jsonPath.user_name}}", "Ada"},
		{"{{request.jsonPath.count}}", "3"},
		{`{"id": "{{ request.pathParam.id }}", "by": "{{request.header.X-Request-Id}}"}`, `{"id": "42", "by": "abc-123"}`},
		{"{{request.unknown}}", ""},
		{"{{nonsense}}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := engine.Process(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcess_NonJSONBody(t *testing.T) {
	ctx := newTestContext(t, "POST", "/form", "a=1&b=2")
	got, _ := New().Process("{{request.rawBody}}|{{request.body.a}}", ctx)
	assert.Equal(t, "a=1&b=2|", got)
}

func TestProcess_NilContext(t *testing.T) {
	got, err := New().Process("[{{request.method}}]", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestProcess_TimeVariables(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	engine := NewWithClock(func() time.Time { return fixed })

	got, _ := engine.Process("{{now}}|{{timestamp}}|{{timestamp.unix_ms}}", nil)
	assert.Equal(t, "2026-03-14T15:09:26Z|"+strconv.FormatInt(fixed.Unix(), 10)+"|"+strconv.FormatInt(fixed.UnixMilli(), 10), got)
}

func TestProcess_UUID(t *testing.T) {
	uuidRe := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	engine := New()

	a, _ := engine.Process("{{uuid}}", nil)
	b, _ := engine.Process("{{uuid}}", nil)
	assert.Regexp(t, uuidRe, a)
	assert.NotEqual(t, a, b)

	short, _ := engine.Process("{{uuid.short}}", nil)
	assert.Len(t, short, 8)
}

func TestProcess_SeededRandomIsDeterministic(t *testing.T) {
	engine := New()
	render := func() string {
		ctx := &Context{Rand: mathrand.New(mathrand.NewPCG(7, 0))}
		out, _ := engine.Process("{{uuid}} {{random.int(1, 1000)}} {{random.string(12)}}", ctx)
		return out
	}
	assert.Equal(t, render(), render())
}

func TestProcess_RandomInt(t *testing.T) {
	engine := New()
	for _, tmpl := range []string{"{{random.int(5, 9)}}", "{{random.int 5 9}}"} {
		got, _ := engine.Process(tmpl, nil)
		n, err := strconv.Atoi(got)
		require.NoError(t, err, tmpl)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 9)
	}

	got, _ := engine.Process("{{random.int(9, 5)}}", nil)
	assert.Empty(t, got)
}

func TestProcess_RandomString(t *testing.T) {
	got, _ := New().Process("{{random.string}}-{{random.string(4)}}", nil)
	assert.Regexp(t, `^[A-Za-z0-9]{10}-[A-Za-z0-9]{4}$`, got)
}

func TestProcess_Functions(t *testing.T) {
	engine := New()
	ctx := newTestContext(t, "GET", "/x?name=ada", "")

	tests := []struct {
		template string
		want     string
	}{
		{"{{upper(request.query.name)}}", "ADA"},
		{"{{upper request.query.name}}", "ADA"},
		{`{{lower("MiXeD")}}`, "mixed"},
		{`{{default(request.query.missing, "anon")}}`, "anon"},
		{`{{default(request.query.name, "anon")}}`, "ada"},
		{`{{default request.query.missing "no one"}}`, "no one"},
		{`{{default("", 'a, b')}}`, "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, _ := engine.Process(tt.template, ctx)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcess_Sequences(t *testing.T) {
	engine := New()
	first, _ := engine.Process(`{{sequence("orders")}},{{sequence("orders")}},{{sequence("ids", 100)}}`, nil)
	assert.Equal(t, "1,2,100", first)

	other := New()
	got, _ := other.Process(`{{sequence("orders")}}`, nil)
	assert.Equal(t, "1", got, "sequences are scoped to the engine")

	engine.Sequences().Reset("orders")
	got, _ = engine.Process(`{{sequence("orders")}}`, nil)
	assert.Equal(t, "1", got)

	engine.Sequences().Clear()
	assert.Zero(t, engine.Sequences().Current("ids"))
	got, _ = engine.Process(`{{sequence("ids", 100)}}`, nil)
	assert.Equal(t, "100", got)
}

func TestProcess_ConcurrentSequences(t *testing.T) {
	engine := New()
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := engine.Process(`{{sequence("n")}}`, nil)
			_, dup := seen.LoadOrStore(v, true)
			assert.False(t, dup, "value %s issued twice", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(51), engine.Sequences().Current("n"))
}

func TestProcessInterface(t *testing.T) {
	ctx := newTestContext(t, "GET", "/users/7", "")
	ctx.SetPathParams(map[string]string{"id": "7"})

	out := New().ProcessInterface(map[string]interface{}{
		"id":    "{{request.pathParam.id}}",
		"list":  []interface{}{"{{request.method}}", float64(1)},
		"fixed": true,
	}, ctx)

	assert.Equal(t, map[string]interface{}{
		"id":    "7",
		"list":  []interface{}{"GET", float64(1)},
		"fixed": true,
	}, out)
}

func TestSplitFuncArgs(t *testing.T) {
	assert.Equal(t, []string{`a`, `"b, c"`, `d`}, splitFuncArgs(`a, "b, c", d`))
	assert.Nil(t, splitFuncArgs(""))
}
