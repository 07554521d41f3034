// Package mock provides the request/response model and mock definitions
// shared by the matching engine and the interception scope.
package mock

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJSONCompareDepth is the nesting depth at which JSON body
// comparison stops descending.
const DefaultJSONCompareDepth = 4096

// Definition pairs a request matcher with a response producer and a
// consumption policy.
type Definition struct {
	ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Matcher     *HTTPMatcher  `json:"matcher,omitempty" yaml:"matcher,omitempty"`
	Response    *HTTPResponse `json:"response,omitempty" yaml:"response,omitempty"`

	// Respond computes the response from the matched request. It is
	// mutually exclusive with Response.
	Respond ResponderFunc `json:"-" yaml:"-"`

	// Times limits how often the definition may be consumed. Zero means
	// reusable without limit; one means one-shot.
	Times int `json:"times,omitempty" yaml:"times,omitempty"`

	// Required marks a reusable definition as expected to be consumed at
	// least once. Limited definitions are always required.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Dump logs every request this definition matches.
	Dump bool `json:"dump,omitempty" yaml:"dump,omitempty"`
}

// ResponderFunc builds a response from the request that matched.
type ResponderFunc func(req *Request) (*Response, error)

// Reusable reports whether the definition can be consumed without limit.
func (d *Definition) Reusable() bool {
	return d.Times == 0
}

// OneShot reports whether the definition is consumed by a single request.
func (d *Definition) OneShot() bool {
	return d.Times == 1
}

// MustBeConsumed reports whether a never-consumed definition counts as
// unconsumed at teardown.
func (d *Definition) MustBeConsumed() bool {
	return d.Times > 0 || d.Required
}

// DisplayName returns Name, falling back to ID.
func (d *Definition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Describe renders "METHOD path" for the matcher, used in reports.
func (d *Definition) Describe() string {
	if d.Matcher == nil {
		return "(no matcher)"
	}
	method := d.Matcher.Method
	if method == "" {
		method = "*"
	}
	path := d.Matcher.Path
	if path == "" {
		path = d.Matcher.PathPattern
	}
	if path == "" {
		path = "*"
	}
	if d.Matcher.Host != "" {
		return fmt.Sprintf("%s %s%s", method, d.Matcher.Host, path)
	}
	return method + " " + path
}

// Clone returns a copy that shares no maps or slices with d.
func (d *Definition) Clone() *Definition {
	c := *d
	if d.Matcher != nil {
		c.Matcher = d.Matcher.Clone()
	}
	if d.Response != nil {
		r := *d.Response
		r.Headers = maps.Clone(d.Response.Headers)
		c.Response = &r
	}
	return &c
}

// Fluent setters. They return the receiver so endpoint builders chain.

// WithID sets the definition ID.
func (d *Definition) WithID(id string) *Definition { d.ID = id; return d }

// WithName sets the display name.
func (d *Definition) WithName(name string) *Definition { d.Name = name; return d }

// WithStatus sets the status of the static response.
func (d *Definition) WithStatus(code int) *Definition {
	d.response().StatusCode = code
	return d
}

// WithBody sets the body of the static response.
func (d *Definition) WithBody(body string) *Definition {
	d.response().Body = body
	return d
}

// WithJSON marshals v as the body of the static response.
func (d *Definition) WithJSON(v interface{}) *Definition {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}
	r := d.response()
	r.Body = string(data)
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers["Content-Type"] = "application/json"
	return d
}

// WithHeader adds a header to the static response.
func (d *Definition) WithHeader(name, value string) *Definition {
	r := d.response()
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[name] = value
	return d
}

// WithDelay delays the response.
func (d *Definition) WithDelay(delay time.Duration) *Definition {
	d.response().DelayMs = int(delay / time.Millisecond)
	return d
}

// ExpectHeader requires a request header. The value may use * patterns.
func (d *Definition) ExpectHeader(name, value string) *Definition {
	m := d.matcher()
	if m.Headers == nil {
		m.Headers = map[string]string{}
	}
	m.Headers[name] = value
	return d
}

// RejectHeader requires a request header to be absent.
func (d *Definition) RejectHeader(name string) *Definition {
	m := d.matcher()
	m.HeadersAbsent = append(m.HeadersAbsent, name)
	return d
}

// ExpectQuery requires a query parameter.
func (d *Definition) ExpectQuery(key, value string) *Definition {
	m := d.matcher()
	if m.QueryParams == nil {
		m.QueryParams = map[string]string{}
	}
	m.QueryParams[key] = value
	return d
}

// ExpectBody requires a JSON body containing at least the fields of v.
func (d *Definition) ExpectBody(v interface{}) *Definition {
	m := d.matcher()
	m.BodyJSON = v
	m.BodyJSONExact = false
	return d
}

// ExpectExactBody requires a JSON body equal to v, with no extra fields.
func (d *Definition) ExpectExactBody(v interface{}) *Definition {
	m := d.matcher()
	m.BodyJSON = v
	m.BodyJSONExact = true
	return d
}

// Once makes the definition one-shot.
func (d *Definition) Once() *Definition { d.Times = 1; return d }

// WithTimes limits the definition to n uses.
func (d *Definition) WithTimes(n int) *Definition { d.Times = n; return d }

// WithDump logs every request the definition matches.
func (d *Definition) WithDump() *Definition { d.Dump = true; return d }

func (d *Definition) response() *HTTPResponse {
	if d.Response == nil {
		d.Response = &HTTPResponse{StatusCode: 200}
	}
	return d.Response
}

func (d *Definition) matcher() *HTTPMatcher {
	if d.Matcher == nil {
		d.Matcher = &HTTPMatcher{}
	}
	return d.Matcher
}

// HTTPMatcher is the closed set of request conditions. Every non-empty
// field must be satisfied for the matcher to accept a request.
type HTTPMatcher struct {
	Method      string `json:"method,omitempty" yaml:"method,omitempty"`
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	PathPattern string `json:"pathPattern,omitempty" yaml:"pathPattern,omitempty"`

	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	HeadersAbsent []string          `json:"headersAbsent,omitempty" yaml:"headersAbsent,omitempty"`

	QueryParams map[string]string `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	// QueryStrict rejects requests carrying query keys not listed in QueryParams.
	QueryStrict bool `json:"queryStrict,omitempty" yaml:"queryStrict,omitempty"`

	BodyContains string `json:"bodyContains,omitempty" yaml:"bodyContains,omitempty"`
	BodyEquals   string `json:"bodyEquals,omitempty" yaml:"bodyEquals,omitempty"`
	BodyPattern  string `json:"bodyPattern,omitempty" yaml:"bodyPattern,omitempty"`

	// BodyJSON is compared structurally against the decoded request body.
	// Extra request fields are ignored unless BodyJSONExact is set.
	BodyJSON         interface{} `json:"bodyJson,omitempty" yaml:"bodyJson,omitempty"`
	BodyJSONExact    bool        `json:"bodyJsonExact,omitempty" yaml:"bodyJsonExact,omitempty"`
	JSONCompareDepth int         `json:"jsonCompareDepth,omitempty" yaml:"jsonCompareDepth,omitempty"`

	BodyJSONPath map[string]interface{} `json:"bodyJsonPath,omitempty" yaml:"bodyJsonPath,omitempty"`
	BodySchema   interface{}            `json:"bodySchema,omitempty" yaml:"bodySchema,omitempty"`
	BodyXPath    map[string]string      `json:"bodyXPath,omitempty" yaml:"bodyXPath,omitempty"`
	GraphQL      *GraphQLMatch          `json:"graphql,omitempty" yaml:"graphql,omitempty"`
	JWTClaims    map[string]interface{} `json:"jwtClaims,omitempty" yaml:"jwtClaims,omitempty"`

	// Expr is a boolean expression evaluated against the request.
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Predicate is an arbitrary condition for cases the built-in fields
	// cannot express.
	Predicate func(*Request) bool `json:"-" yaml:"-"`
}

// GraphQLMatch selects GraphQL requests by operation.
type GraphQLMatch struct {
	OperationName string `json:"operationName,omitempty" yaml:"operationName,omitempty"`
	// OperationType is query, mutation or subscription.
	OperationType string `json:"operationType,omitempty" yaml:"operationType,omitempty"`
}

// Clone returns a copy of m with its own maps and JSON values.
func (m *HTTPMatcher) Clone() *HTTPMatcher {
	c := *m
	c.Headers = maps.Clone(m.Headers)
	c.HeadersAbsent = slices.Clone(m.HeadersAbsent)
	c.QueryParams = maps.Clone(m.QueryParams)
	c.BodyJSON = cloneValue(m.BodyJSON)
	c.BodyJSONPath = cloneObject(m.BodyJSONPath)
	c.BodySchema = cloneValue(m.BodySchema)
	c.BodyXPath = maps.Clone(m.BodyXPath)
	c.JWTClaims = cloneObject(m.JWTClaims)
	if m.GraphQL != nil {
		g := *m.GraphQL
		c.GraphQL = &g
	}
	return &c
}

// cloneValue deep-copies decoded JSON or YAML. Other values are shared.
func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return cloneObject(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func cloneObject(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// HasCriteria reports whether at least one condition is set.
func (m *HTTPMatcher) HasCriteria() bool {
	return m.Method != "" ||
		m.Host != "" ||
		m.Path != "" ||
		m.PathPattern != "" ||
		len(m.Headers) > 0 ||
		len(m.HeadersAbsent) > 0 ||
		len(m.QueryParams) > 0 ||
		m.QueryStrict ||
		m.BodyContains != "" ||
		m.BodyEquals != "" ||
		m.BodyPattern != "" ||
		m.BodyJSON != nil ||
		len(m.BodyJSONPath) > 0 ||
		m.BodySchema != nil ||
		len(m.BodyXPath) > 0 ||
		m.GraphQL != nil ||
		len(m.JWTClaims) > 0 ||
		m.Expr != "" ||
		m.Predicate != nil
}

// HTTPResponse specifies a static response.
type HTTPResponse struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body" yaml:"body"`
	DelayMs    int               `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
	// Template renders {{...}} expressions in the body and header values
	// against the matched request.
	Template bool `json:"template,omitempty" yaml:"template,omitempty"`
}

// UnmarshalJSON accepts the body as a string or as any JSON value. Non-string
// values are stored as their JSON text.
func (r *HTTPResponse) UnmarshalJSON(data []byte) error {
	var proxy struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers,omitempty"`
		Body       json.RawMessage   `json:"body"`
		DelayMs    int               `json:"delayMs,omitempty"`
		Template   bool              `json:"template,omitempty"`
	}
	if err := json.Unmarshal(data, &proxy); err != nil {
		return err
	}

	r.StatusCode = proxy.StatusCode
	r.Headers = proxy.Headers
	r.DelayMs = proxy.DelayMs
	r.Template = proxy.Template
	r.Body = ""

	if len(proxy.Body) == 0 || string(proxy.Body) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(proxy.Body, &s); err == nil {
		r.Body = s
		return nil
	}
	r.Body = string(proxy.Body)
	return nil
}

// UnmarshalYAML accepts the body as a scalar or as a mapping/sequence,
// which is stored as JSON text.
func (r *HTTPResponse) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping node, got %d", value.Kind)
	}

	type plain HTTPResponse
	var alias plain
	var bodyNode *yaml.Node

	// Decode a shallow copy with the body slot blanked so an object body
	// does not trip the string field.
	stripped := *value
	stripped.Content = slices.Clone(value.Content)
	for i := 0; i+1 < len(stripped.Content); i += 2 {
		if stripped.Content[i].Value == "body" {
			bodyNode = stripped.Content[i+1]
			stripped.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
		}
	}
	if err := stripped.Decode(&alias); err != nil {
		return err
	}
	*r = HTTPResponse(alias)

	if bodyNode == nil {
		return nil
	}
	if bodyNode.Kind == yaml.ScalarNode {
		r.Body = bodyNode.Value
		return nil
	}

	var bodyObj interface{}
	if err := bodyNode.Decode(&bodyObj); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	bodyJSON, err := json.Marshal(bodyObj)
	if err != nil {
		return fmt.Errorf("failed to marshal body to JSON: %w", err)
	}
	r.Body = string(bodyJSON)
	return nil
}

// Delay returns DelayMs as a duration.
func (r *HTTPResponse) Delay() time.Duration {
	return time.Duration(r.DelayMs) * time.Millisecond
}

// Build converts the static response into a Response value. A JSON body
// without an explicit Content-Type gets application/json.
func (r *HTTPResponse) Build() *Response {
	resp := &Response{
		StatusCode: r.StatusCode,
		Header:     Header{},
		Body:       Body(r.Body),
		Delay:      r.Delay(),
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = 200
	}
	for _, name := range slices.Sorted(maps.Keys(r.Headers)) {
		resp.Header.Set(name, r.Headers[name])
	}
	if !resp.Header.Has("Content-Type") && json.Valid(resp.Body) && len(resp.Body) > 0 {
		if b := resp.Body[0]; b == '{' || b == '[' {
			resp.Header.Set("Content-Type", "application/json")
		}
	}
	return resp
}
