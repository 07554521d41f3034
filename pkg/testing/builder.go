package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/getmockd/intercept/pkg/mock"
)

// MockBuilder builds a mock definition using a fluent API. Mocks are
// reusable unless Times, Once or Twice limits them.
type MockBuilder struct {
	harness *Harness
	def     *mock.Definition
	resp    *mock.HTTPResponse
	err     error // First error encountered during building
}

// setError records the first error encountered during building.
func (b *MockBuilder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns any error encountered during building.
func (b *MockBuilder) Err() error {
	return b.err
}

// WithStatus sets the response status code. Default is 200 (OK).
func (b *MockBuilder) WithStatus(status int) *MockBuilder {
	b.resp.StatusCode = status
	return b
}

// WithBody sets the response body. Values other than string and []byte
// are JSON encoded.
func (b *MockBuilder) WithBody(body interface{}) *MockBuilder {
	switch v := body.(type) {
	case string:
		b.resp.Body = v
	case []byte:
		b.resp.Body = string(v)
	default:
		return b.WithJSON(v)
	}
	return b
}

// WithJSON sets a JSON response body and Content-Type.
func (b *MockBuilder) WithJSON(body interface{}) *MockBuilder {
	data, err := json.Marshal(body)
	if err != nil {
		b.setError(fmt.Errorf("WithJSON: failed to marshal body: %w", err))
		return b
	}
	b.resp.Body = string(data)
	return b.WithHeader("Content-Type", "application/json")
}

// WithHeader adds a response header.
func (b *MockBuilder) WithHeader(key, value string) *MockBuilder {
	if b.resp.Headers == nil {
		b.resp.Headers = make(map[string]string)
	}
	b.resp.Headers[key] = value
	return b
}

// WithHeaders adds multiple response headers.
func (b *MockBuilder) WithHeaders(headers map[string]string) *MockBuilder {
	for k, v := range headers {
		b.WithHeader(k, v)
	}
	return b
}

// WithDelay delays the response. The delay is a duration string such as
// "100ms" or "2s".
func (b *MockBuilder) WithDelay(delay string) *MockBuilder {
	d, err := time.ParseDuration(delay)
	if err != nil {
		b.setError(fmt.Errorf("WithDelay: invalid duration %q: %w", delay, err))
		return b
	}
	b.resp.DelayMs = int(d.Milliseconds())
	return b
}

// WithDelayMs delays the response by ms milliseconds.
func (b *MockBuilder) WithDelayMs(ms int) *MockBuilder {
	b.resp.DelayMs = ms
	return b
}

// WithTemplate renders {{...}} expressions in the response body and
// header values against the matched request.
func (b *MockBuilder) WithTemplate() *MockBuilder {
	b.resp.Template = true
	return b
}

// WithHost restricts the mock to one host.
func (b *MockBuilder) WithHost(host string) *MockBuilder {
	b.def.Matcher.Host = host
	return b
}

// WithBodyContains requires the request body to contain substr.
func (b *MockBuilder) WithBodyContains(substr string) *MockBuilder {
	b.def.Matcher.BodyContains = substr
	return b
}

// WithBodyEquals requires the request body to equal body exactly.
func (b *MockBuilder) WithBodyEquals(body string) *MockBuilder {
	b.def.Matcher.BodyEquals = body
	return b
}

// WithBodyPattern requires the request body to match a regular expression.
func (b *MockBuilder) WithBodyPattern(pattern string) *MockBuilder {
	b.def.Matcher.BodyPattern = pattern
	return b
}

// WithBodyJSON requires the request body to contain the fields of v.
func (b *MockBuilder) WithBodyJSON(v interface{}) *MockBuilder {
	b.def.ExpectBody(v)
	return b
}

// WithQueryParam requires a query parameter.
func (b *MockBuilder) WithQueryParam(key, value string) *MockBuilder {
	b.def.ExpectQuery(key, value)
	return b
}

// WithQueryParams requires multiple query parameters.
func (b *MockBuilder) WithQueryParams(params map[string]string) *MockBuilder {
	for k, v := range params {
		b.def.ExpectQuery(k, v)
	}
	return b
}

// WithRequestHeader requires a request header.
func (b *MockBuilder) WithRequestHeader(key, value string) *MockBuilder {
	b.def.ExpectHeader(key, value)
	return b
}

// WithRequestHeaders requires multiple request headers.
func (b *MockBuilder) WithRequestHeaders(headers map[string]string) *MockBuilder {
	for k, v := range headers {
		b.def.ExpectHeader(k, v)
	}
	return b
}

// WithoutRequestHeader requires a request header to be absent.
func (b *MockBuilder) WithoutRequestHeader(key string) *MockBuilder {
	b.def.RejectHeader(key)
	return b
}

// WithPathPattern matches the path against a regular expression instead of
// the literal path given to Mock.
func (b *MockBuilder) WithPathPattern(pattern string) *MockBuilder {
	b.def.Matcher.Path = ""
	b.def.Matcher.PathPattern = pattern
	return b
}

// Matching adds an arbitrary request condition.
func (b *MockBuilder) Matching(fn func(*mock.Request) bool) *MockBuilder {
	b.def.Matcher.Predicate = fn
	return b
}

// WithName sets the name used in diagnostics.
func (b *MockBuilder) WithName(name string) *MockBuilder {
	b.def.Name = name
	return b
}

// WithID sets the definition ID.
func (b *MockBuilder) WithID(id string) *MockBuilder {
	b.def.ID = id
	return b
}

// WithDescription sets the mock description.
func (b *MockBuilder) WithDescription(description string) *MockBuilder {
	b.def.Description = description
	return b
}

// Times limits the mock to n matches. Limited mocks must all be consumed
// by the end of the test.
func (b *MockBuilder) Times(n int) *MockBuilder {
	if n < 0 {
		b.setError(fmt.Errorf("Times: negative count %d", n))
		return b
	}
	b.def.Times = n
	return b
}

// Once limits the mock to one match.
func (b *MockBuilder) Once() *MockBuilder { return b.Times(1) }

// Twice limits the mock to two matches.
func (b *MockBuilder) Twice() *MockBuilder { return b.Times(2) }

// Required marks a reusable mock as expected to match at least once.
func (b *MockBuilder) Required() *MockBuilder {
	b.def.Required = true
	return b
}

// Dump logs every request the mock matches.
func (b *MockBuilder) Dump() *MockBuilder {
	b.def.Dump = true
	return b
}

// Respond computes the response from the matched request instead of
// using a static response.
func (b *MockBuilder) Respond(fn mock.ResponderFunc) *MockBuilder {
	b.def.Respond = fn
	return b
}

// Reply registers the mock with the harness. A builder error fails the
// test.
func (b *MockBuilder) Reply() *Harness {
	b.harness.t.Helper()
	if b.err != nil {
		b.harness.t.Errorf("mock %s: %v", b.def.Describe(), b.err)
		return b.harness
	}
	if b.def.Respond == nil {
		b.def.Response = b.resp
	}
	b.harness.addMock(b.def)
	return b.harness
}

// Convenience response methods

// RespondWith sets status and body.
func (b *MockBuilder) RespondWith(status int, body interface{}) *MockBuilder {
	return b.WithStatus(status).WithBody(body)
}

// RespondJSON sets a 200 JSON response.
func (b *MockBuilder) RespondJSON(body interface{}) *MockBuilder {
	return b.WithStatus(http.StatusOK).WithJSON(body)
}

// RespondNotFound sets a 404 response.
func (b *MockBuilder) RespondNotFound() *MockBuilder {
	return b.WithStatus(http.StatusNotFound).WithJSON(map[string]string{"error": "not found"})
}

// RespondBadRequest sets a 400 response with message.
func (b *MockBuilder) RespondBadRequest(message string) *MockBuilder {
	return b.WithStatus(http.StatusBadRequest).WithJSON(map[string]string{"error": message})
}

// RespondServerError sets a 500 response with message.
func (b *MockBuilder) RespondServerError(message string) *MockBuilder {
	return b.WithStatus(http.StatusInternalServerError).WithJSON(map[string]string{"error": message})
}

// RespondUnauthorized sets a 401 response.
func (b *MockBuilder) RespondUnauthorized() *MockBuilder {
	return b.WithStatus(http.StatusUnauthorized).WithJSON(map[string]string{"error": "unauthorized"})
}

// RespondCreated sets a 201 response.
func (b *MockBuilder) RespondCreated(body interface{}) *MockBuilder {
	return b.WithStatus(http.StatusCreated).WithBody(body)
}

// RespondNoContent sets a 204 response.
func (b *MockBuilder) RespondNoContent() *MockBuilder {
	return b.WithStatus(http.StatusNoContent)
}
