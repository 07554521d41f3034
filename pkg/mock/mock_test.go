package mock

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Header / Query / Body
// =============================================================================

func TestHeader_CaseInsensitiveAndOrdered(t *testing.T) {
	h := Header{}
	h.Add("x-trace", "a")
	h.Add("X-TRACE", "b")
	h.Add("Accept", "text/plain")

	assert.Equal(t, []string{"a", "b"}, h.Values("X-Trace"))
	assert.Equal(t, "a", h.Get("x-trace"))
	assert.True(t, h.Has("ACCEPT"))
	assert.True(t, h.HasValue("x-trace", "b"))
	assert.False(t, h.HasValue("x-trace", "c"))
	assert.Equal(t, []string{"Accept", "X-Trace"}, h.Names())
}

func TestHeader_CloneIsIndependent(t *testing.T) {
	h := Header{}
	h.Add("A", "1")
	c := h.Clone()
	c.Add("A", "2")
	assert.Equal(t, []string{"1"}, h.Values("A"))
}

func TestParseQuery_KeepsOrderAndDuplicates(t *testing.T) {
	q, err := ParseQuery("b=2&a=1&b=3&empty=&flag")
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "3"}, q.Values("b"))
	assert.Equal(t, "1", q.Get("a"))
	assert.True(t, q.Has("flag"))
	assert.True(t, q.HasValue("empty", ""))
	assert.Equal(t, []string{"b", "a", "empty", "flag"}, q.Keys())
}

func TestParseQuery_InvalidEscape(t *testing.T) {
	_, err := ParseQuery("a=%zz")
	assert.Error(t, err)
}

func TestQuery_Equal(t *testing.T) {
	a := Query{{"a", "1"}, {"b", "2"}}
	b := Query{{"b", "2"}, {"a", "1"}}

	assert.True(t, a.Equal(b, false), "order-insensitive by default")
	assert.False(t, a.Equal(b, true), "strict comparison respects order")
	assert.True(t, a.Equal(Query{{"a", "1"}, {"b", "2"}}, true))
	assert.False(t, a.Equal(Query{{"a", "1"}}, false))
	assert.False(t, a.Equal(Query{{"a", "1"}, {"b", "3"}}, false))
}

func TestQuery_Encode(t *testing.T) {
	var q Query
	q.Add("q", "a b")
	q.Add("page", "2")
	assert.Equal(t, "q=a+b&page=2", q.Encode())
}

func TestBody_JSON(t *testing.T) {
	v, ok := Body(`{"id":1}`).JSON()
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"id": float64(1)}, v)

	_, ok = Body("not json").JSON()
	assert.False(t, ok)
	_, ok = Body("  ").JSON()
	assert.False(t, ok)

	assert.True(t, Body("x").Equal(Body("x")))
}

// =============================================================================
// Request
// =============================================================================

func TestNewRequest(t *testing.T) {
	r, err := NewRequest("get", "https://api.example.com/users/1?expand=roles")
	require.NoError(t, err)

	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "api.example.com", r.Hostname())
	assert.Equal(t, "443", r.Port())
	assert.Equal(t, "/users/1", r.Path)
	assert.Equal(t, "roles", r.Query.Get("expand"))
	assert.Equal(t, "GET /users/1?expand=roles", r.String())
}

func TestFromHTTP_RestoresBody(t *testing.T) {
	hr, err := http.NewRequest(http.MethodPost, "http://localhost:8080/orders?x=1", strings.NewReader(`{"sku":"a"}`))
	require.NoError(t, err)
	hr.Header.Set("X-Key", "abc")

	r, err := FromHTTP(hr)
	require.NoError(t, err)

	assert.Equal(t, "POST", r.Method)
	assert.Equal(t, "localhost:8080", r.Host)
	assert.Equal(t, "8080", r.Port())
	assert.Equal(t, "abc", r.Header.Get("x-key"))
	assert.Equal(t, `{"sku":"a"}`, r.Body.String())

	again, err := io.ReadAll(hr.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"sku":"a"}`, string(again))
}

func TestFromHTTP_BodySizeLimit(t *testing.T) {
	atLimit, err := http.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, MaxBodySize)))
	require.NoError(t, err)
	r, err := FromHTTP(atLimit)
	require.NoError(t, err)
	assert.Len(t, r.Body, MaxBodySize)

	over, err := http.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, MaxBodySize+1)))
	require.NoError(t, err)
	_, err = FromHTTP(over)
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFromHTTP_NoURL(t *testing.T) {
	r, err := FromHTTP(&http.Request{Method: "", Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "/", r.Path)
}

func TestRequest_Dump(t *testing.T) {
	r, err := NewRequest("POST", "/orders")
	require.NoError(t, err)
	r.Header.Add("Content-Type", "application/json")
	r.Header.Add("X-A", "1")
	r.Body = Body(`{"a":1}`)

	dump := r.Dump()
	assert.Contains(t, dump, "POST /orders")
	assert.Contains(t, dump, "Content-Type: application/json")
	assert.Contains(t, dump, "         X-A: 1")
	assert.Contains(t, dump, `body: {"a":1}`)
}

// =============================================================================
// Response
// =============================================================================

func TestResponse_HTTP(t *testing.T) {
	resp := NewResponse(201, []byte(`{"ok":true}`))
	resp.Header.Set("Content-Type", "application/json")

	req := &http.Request{Method: http.MethodPost, URL: &url.URL{Path: "/"}}
	hr := resp.HTTP(req)

	assert.Equal(t, 201, hr.StatusCode)
	assert.Equal(t, "201 Created", hr.Status)
	assert.Equal(t, "application/json", hr.Header.Get("Content-Type"))
	assert.Equal(t, "11", hr.Header.Get("Content-Length"))
	assert.Same(t, req, hr.Request)

	body, err := io.ReadAll(hr.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
}

func TestResponse_HTTP_HeadHasNoBody(t *testing.T) {
	resp := NewResponse(200, []byte("hello"))
	hr := resp.HTTP(&http.Request{Method: http.MethodHead})
	assert.Equal(t, http.NoBody, hr.Body)
	assert.Equal(t, int64(5), hr.ContentLength)
}

func TestHTTPResponse_Build(t *testing.T) {
	r := &HTTPResponse{Body: `{"id":1}`, DelayMs: 20}
	resp := r.Build()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 20*time.Millisecond, resp.Delay)

	plain := (&HTTPResponse{StatusCode: 204, Body: "42"}).Build()
	assert.False(t, plain.Header.Has("Content-Type"))
}

// =============================================================================
// Unmarshal
// =============================================================================

func TestHTTPResponse_UnmarshalJSON_ObjectBody(t *testing.T) {
	var r HTTPResponse
	err := json.Unmarshal([]byte(`{"statusCode":200,"body":{"id":1}}`), &r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, r.Body)

	err = json.Unmarshal([]byte(`{"statusCode":201,"body":"plain"}`), &r)
	require.NoError(t, err)
	assert.Equal(t, "plain", r.Body)
	assert.Equal(t, 201, r.StatusCode)
}

func TestHTTPResponse_UnmarshalYAML_ObjectBody(t *testing.T) {
	var def Definition
	err := yaml.Unmarshal([]byte(`
matcher:
  method: GET
  path: /users/1
response:
  statusCode: 200
  headers:
    X-Req: abc
  body:
    id: 1
    name: Ada
times: 1
`), &def)
	require.NoError(t, err)

	require.NotNil(t, def.Response)
	assert.Equal(t, 200, def.Response.StatusCode)
	assert.Equal(t, "abc", def.Response.Headers["X-Req"])
	assert.JSONEq(t, `{"id":1,"name":"Ada"}`, def.Response.Body)
	assert.True(t, def.OneShot())
}

// =============================================================================
// Validation
// =============================================================================

func TestDefinition_Validate(t *testing.T) {
	matcher := &HTTPMatcher{Method: "GET", Path: "/a"}
	response := &HTTPResponse{StatusCode: 200}

	tests := []struct {
		name      string
		def       *Definition
		wantField string
	}{
		{"valid", &Definition{Matcher: matcher, Response: response}, ""},
		{"valid responder", &Definition{Matcher: matcher, Respond: func(*Request) (*Response, error) { return nil, nil }}, ""},
		{"empty", &Definition{}, "definition"},
		{"producer without matcher", &Definition{Response: response}, "matcher"},
		{"empty matcher counts as missing", &Definition{Matcher: &HTTPMatcher{}, Response: response}, "matcher"},
		{"matcher without producer", &Definition{Matcher: matcher}, "response"},
		{"two producers", &Definition{Matcher: matcher, Response: response, Respond: func(*Request) (*Response, error) { return nil, nil }}, "response"},
		{"negative times", &Definition{Matcher: matcher, Response: response, Times: -1}, "times"},
		{"bad path", &Definition{Matcher: &HTTPMatcher{Path: "users"}, Response: response}, "matcher.path"},
		{"path and pattern", &Definition{Matcher: &HTTPMatcher{Path: "/a", PathPattern: "^/a$"}, Response: response}, "matcher"},
		{"bad pattern", &Definition{Matcher: &HTTPMatcher{PathPattern: "("}, Response: response}, "matcher.pathPattern"},
		{"bad body pattern", &Definition{Matcher: &HTTPMatcher{BodyPattern: "["}, Response: response}, "matcher.bodyPattern"},
		{"bad header name", &Definition{Matcher: &HTTPMatcher{Headers: map[string]string{"Bad Header": "x"}}, Response: response}, "matcher.headers"},
		{"required and rejected", &Definition{Matcher: &HTTPMatcher{Headers: map[string]string{"X": "1"}, HeadersAbsent: []string{"X"}}, Response: response}, "matcher.headersAbsent"},
		{"equals and contains", &Definition{Matcher: &HTTPMatcher{BodyEquals: "a", BodyContains: "b"}, Response: response}, "matcher"},
		{"bad jsonpath", &Definition{Matcher: &HTTPMatcher{BodyJSONPath: map[string]interface{}{"$[invalid": 1}}, Response: response}, "matcher.bodyJsonPath"},
		{"bad graphql type", &Definition{Matcher: &HTTPMatcher{GraphQL: &GraphQLMatch{OperationType: "select"}}, Response: response}, "matcher.graphql.operationType"},
		{"bad status", &Definition{Matcher: matcher, Response: &HTTPResponse{StatusCode: 42}}, "response.statusCode"},
		{"bad delay", &Definition{Matcher: matcher, Response: &HTTPResponse{DelayMs: -5}}, "response.delayMs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "matcher.path", Message: "path must start with /"}
	assert.Equal(t, "validation error on matcher.path: path must start with /", err.Error())
}

// =============================================================================
// Definitions, providers and endpoints
// =============================================================================

func TestDefinition_Policy(t *testing.T) {
	d := &Definition{}
	assert.True(t, d.Reusable())
	assert.False(t, d.MustBeConsumed())

	d.Required = true
	assert.True(t, d.MustBeConsumed())

	d = (&Definition{}).Once()
	assert.True(t, d.OneShot())
	assert.True(t, d.MustBeConsumed())
}

func TestDefinition_FluentBuilders(t *testing.T) {
	d := (&Definition{}).
		WithID("create-order").
		ExpectHeader("X-Key", "abc").
		RejectHeader("X-Debug").
		ExpectQuery("dry", "1").
		ExpectBody(map[string]interface{}{"sku": "a"}).
		WithStatus(201).
		WithJSON(map[string]int{"id": 7}).
		WithHeader("Location", "/orders/7").
		WithDelay(5 * time.Millisecond).
		WithTimes(2)

	require.NoError(t, d.Validate())
	assert.Equal(t, "abc", d.Matcher.Headers["X-Key"])
	assert.Equal(t, []string{"X-Debug"}, d.Matcher.HeadersAbsent)
	assert.Equal(t, "1", d.Matcher.QueryParams["dry"])
	assert.False(t, d.Matcher.BodyJSONExact)
	assert.Equal(t, 201, d.Response.StatusCode)
	assert.Equal(t, `{"id":7}`, d.Response.Body)
	assert.Equal(t, "application/json", d.Response.Headers["Content-Type"])
	assert.Equal(t, 5, d.Response.DelayMs)
	assert.Equal(t, 2, d.Times)

	d.ExpectExactBody(map[string]interface{}{"sku": "a"})
	assert.True(t, d.Matcher.BodyJSONExact)
}

func TestDefinition_CloneIsDeep(t *testing.T) {
	orig := (&Definition{}).ExpectHeader("A", "1").WithHeader("B", "2")
	c := orig.Clone()
	c.Matcher.Headers["A"] = "changed"
	c.Response.Headers["B"] = "changed"

	assert.Equal(t, "1", orig.Matcher.Headers["A"])
	assert.Equal(t, "2", orig.Response.Headers["B"])
}

func TestStaticProvider_SupplyReturnsFreshCopies(t *testing.T) {
	p := Static("users", &Definition{ID: "a", Matcher: &HTTPMatcher{Path: "/a"}, Response: &HTTPResponse{}})

	first := p.Supply()
	first[0].ID = "mutated"
	second := p.Supply()

	assert.Equal(t, "users", p.Name())
	assert.Equal(t, "a", second[0].ID)
}

func TestProviderFunc(t *testing.T) {
	p := NewProvider("fn", func() []*Definition {
		return []*Definition{{ID: "x"}}
	})
	assert.Equal(t, "fn", p.Name())
	assert.Len(t, p.Supply(), 1)
	assert.Nil(t, NewProvider("nil", nil).Supply())
}

func TestEndpoint(t *testing.T) {
	api := NewEndpoint("API.Example.com", 443)
	assert.Equal(t, "https", api.Protocol())
	assert.Equal(t, "https://api.example.com", api.URL())
	assert.Equal(t, "api.example.com:443", api.HostPort())

	local := NewEndpoint("localhost", 4000)
	assert.Equal(t, "http://localhost:4000/users", local.URLWithPath("/users"))

	def := local.Post("/orders?dry=1").WithStatus(201)
	assert.Equal(t, "POST", def.Matcher.Method)
	assert.Equal(t, "localhost:4000", def.Matcher.Host)
	assert.Equal(t, "/orders", def.Matcher.Path)
	assert.Equal(t, "1", def.Matcher.QueryParams["dry"])
	assert.True(t, def.OneShot())
	require.NoError(t, def.Validate())

	assert.Equal(t, "PURGE", local.Ext("purge", "/cache").Matcher.Method)
	assert.Equal(t, "POST localhost:4000/orders", def.Describe())
}

func TestEndpoint_IDNA(t *testing.T) {
	e := NewEndpoint("bücher.example", 0)
	assert.Equal(t, "xn--bcher-kva.example", e.Hostname)
	assert.Equal(t, "http://xn--bcher-kva.example", e.URL())
}

func TestResponse_BodyReadTwice(t *testing.T) {
	resp := NewResponse(200, []byte("abc"))
	a, _ := io.ReadAll(resp.HTTP(nil).Body)
	b, _ := io.ReadAll(resp.HTTP(nil).Body)
	assert.True(t, bytes.Equal(a, b))
}
