package testing

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	jd "github.com/josephburnett/jd/lib"
	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/requestlog"
)

// RequestLog is one intercepted request, as recorded by the pool.
type RequestLog struct {
	Method      string
	Host        string
	Path        string
	QueryString string
	Headers     mock.Header
	// Body is truncated to requestlog.MaxBodyLength.
	Body string

	// Outcome is matched, unmatched, passthrough or error.
	Outcome requestlog.Outcome
	// MatchedID is the ID of the mock that answered the request.
	MatchedID string
	// Status is the response status code, when a response was produced.
	Status int
}

func newRequestLog(e *requestlog.Entry) RequestLog {
	return RequestLog{
		Method:      e.Method,
		Host:        e.Host,
		Path:        e.Path,
		QueryString: e.QueryString,
		Headers:     mock.Header(e.Headers).Clone(),
		Body:        e.Body,
		Outcome:     e.Outcome,
		MatchedID:   e.MatchedID,
		Status:      e.ResponseStatus,
	}
}

// AssertJSONBody asserts that the request body is structurally equal to
// expected, which may be JSON text or any value that encodes to JSON.
func (r *RequestLog) AssertJSONBody(t testing.TB, expected any) {
	t.Helper()

	var want string
	switch v := expected.(type) {
	case string:
		want = v
	case []byte:
		want = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Errorf("failed to marshal expected value: %v", err)
			return
		}
		want = string(data)
	}

	a, err := jd.ReadJsonString(want)
	if err != nil {
		t.Errorf("failed to parse expected JSON: %v", err)
		return
	}
	b, err := jd.ReadJsonString(r.Body)
	if err != nil {
		t.Errorf("request body is not valid JSON: %v\nbody: %s", err, r.Body)
		return
	}
	if !a.Equals(b) {
		t.Errorf("request body does not match expected JSON\n%s", a.Diff(b).Render())
	}
}

// AssertBody asserts that the request body equals expected.
func (r *RequestLog) AssertBody(t testing.TB, expected string) {
	t.Helper()
	if r.Body != expected {
		t.Errorf("request body does not match\nexpected: %q\nactual: %q", expected, r.Body)
	}
}

// AssertBodyContains asserts that the request body contains substr.
func (r *RequestLog) AssertBodyContains(t testing.TB, substr string) {
	t.Helper()
	if !strings.Contains(r.Body, substr) {
		t.Errorf("request body does not contain %q\nbody: %s", substr, r.Body)
	}
}

// AssertHeader asserts that the request carried the header with value
// expected. Header names are case-insensitive.
func (r *RequestLog) AssertHeader(t testing.TB, key, expected string) {
	t.Helper()
	if !r.Headers.Has(key) {
		t.Errorf("request does not have header %q", key)
		return
	}
	if !r.Headers.HasValue(key, expected) {
		t.Errorf("header %q value mismatch\nexpected: %q\nactual: %q", key, expected, r.Headers.Values(key))
	}
}

// AssertHeaderExists asserts that the request carried the header.
func (r *RequestLog) AssertHeaderExists(t testing.TB, key string) {
	t.Helper()
	if !r.Headers.Has(key) {
		t.Errorf("request does not have header %q", key)
	}
}

// AssertHeaderContains asserts that some value of the header contains
// substr.
func (r *RequestLog) AssertHeaderContains(t testing.TB, key, substr string) {
	t.Helper()
	values := r.Headers.Values(key)
	if len(values) == 0 {
		t.Errorf("request does not have header %q", key)
		return
	}
	for _, v := range values {
		if strings.Contains(v, substr) {
			return
		}
	}
	t.Errorf("header %q value does not contain %q\nvalue: %q", key, substr, values)
}

// AssertQueryParam asserts that the request had the query parameter with
// value expected.
func (r *RequestLog) AssertQueryParam(t testing.TB, key, expected string) {
	t.Helper()
	q := r.query(t)
	if !q.Has(key) {
		t.Errorf("request does not have query parameter %q", key)
		return
	}
	if !q.HasValue(key, expected) {
		t.Errorf("query parameter %q value mismatch\nexpected: %q\nactual: %q", key, expected, q.Values(key))
	}
}

// AssertQueryParamExists asserts that the request had the query parameter.
func (r *RequestLog) AssertQueryParamExists(t testing.TB, key string) {
	t.Helper()
	if !r.query(t).Has(key) {
		t.Errorf("request does not have query parameter %q", key)
	}
}

func (r *RequestLog) query(t testing.TB) mock.Query {
	t.Helper()
	q, err := mock.ParseQuery(r.QueryString)
	if err != nil {
		t.Errorf("parsing query string %q: %v", r.QueryString, err)
	}
	return q
}

// AssertMethod asserts the request method.
func (r *RequestLog) AssertMethod(t testing.TB, expected string) {
	t.Helper()
	if !strings.EqualFold(r.Method, expected) {
		t.Errorf("request method mismatch\nexpected: %q\nactual: %q", expected, r.Method)
	}
}

// AssertPath asserts the request path.
func (r *RequestLog) AssertPath(t testing.TB, expected string) {
	t.Helper()
	if r.Path != expected {
		t.Errorf("request path mismatch\nexpected: %q\nactual: %q", expected, r.Path)
	}
}

// JSONField evaluates a JSONPath expression such as "$.user.name" against
// the request body and returns the first result. A bare dotted name like
// "user.name" is treated as "$.user.name". It returns nil if the body is
// not JSON or nothing matches.
func (r *RequestLog) JSONField(path string) any {
	var data any
	if err := json.Unmarshal([]byte(r.Body), &data); err != nil {
		return nil
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil
	}
	if results := x.Get(data); len(results) > 0 {
		return results[0]
	}
	return nil
}

// AssertJSONField asserts that a JSON field in the request body equals
// expected. Numbers decode as float64.
func (r *RequestLog) AssertJSONField(t testing.TB, path string, expected any) {
	t.Helper()
	actual := r.JSONField(path)
	if actual == nil {
		t.Errorf("JSON field %q not found in request body: %s", path, r.Body)
		return
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("JSON field %q mismatch\nexpected: %v (%T)\nactual: %v (%T)",
			path, expected, expected, actual, actual)
	}
}
