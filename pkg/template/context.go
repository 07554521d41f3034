package template

import (
	mathrand "math/rand/v2"
	"net/url"

	"github.com/getmockd/intercept/pkg/mock"
)

// Context holds all available data for template evaluation.
type Context struct {
	Request RequestContext

	// Rand, when set, makes random expressions deterministic.
	Rand *mathrand.Rand
}

// RequestContext contains the intercepted request data available to templates.
type RequestContext struct {
	Method              string
	Host                string
	Path                string
	URL                 string
	Body                interface{} // Parsed JSON or nil
	RawBody             string
	Query               map[string][]string
	Headers             mock.Header
	PathParams          map[string]string
	PathPatternCaptures map[string]string
	JSONPath            map[string]interface{}
}

// NewContext creates a template context from an intercepted request.
// The body is parsed as JSON when possible, regardless of Content-Type.
func NewContext(r *mock.Request) *Context {
	ctx := &Context{
		Request: RequestContext{
			Method:              r.Method,
			Host:                r.Host,
			Path:                r.Path,
			URL:                 requestURL(r),
			RawBody:             string(r.Body),
			Query:               make(map[string][]string),
			Headers:             r.Header,
			PathParams:          make(map[string]string),
			PathPatternCaptures: make(map[string]string),
			JSONPath:            make(map[string]interface{}),
		},
	}
	if ctx.Request.Headers == nil {
		ctx.Request.Headers = mock.Header{}
	}
	for _, key := range r.Query.Keys() {
		ctx.Request.Query[key] = r.Query.Values(key)
	}
	if body, ok := r.Body.JSON(); ok {
		ctx.Request.Body = body
	}
	return ctx
}

func requestURL(r *mock.Request) string {
	if r.Host == "" {
		return r.Target()
	}
	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.Path, RawQuery: r.Query.Encode()}
	return u.String()
}

// SetPathParams copies {name} and * segments captured by the path matcher.
func (c *Context) SetPathParams(params map[string]string) {
	for key, value := range params {
		c.Request.PathParams[key] = value
	}
}

// SetJSONPathMatches populates the JSONPath context from matching results.
func (c *Context) SetJSONPathMatches(matches map[string]interface{}) {
	for key, value := range matches {
		c.Request.JSONPath[key] = value
	}
}

// SetPathPatternCaptures populates the PathPatternCaptures from regex matching results.
func (c *Context) SetPathPatternCaptures(captures map[string]string) {
	for key, value := range captures {
		c.Request.PathPatternCaptures[key] = value
	}
}
