package mock

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ohler55/ojg/jp"
	"golang.org/x/net/http/httpguts"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Validate checks that the definition pairs a matcher with exactly one
// producer and that both are internally consistent.
func (d *Definition) Validate() error {
	hasMatcher := d.Matcher != nil && d.Matcher.HasCriteria()
	hasProducer := d.Response != nil || d.Respond != nil

	switch {
	case !hasMatcher && !hasProducer:
		return &ValidationError{Field: "definition", Message: "matcher and response are required"}
	case !hasMatcher:
		return &ValidationError{Field: "matcher", Message: "response is attached without a matcher"}
	case !hasProducer:
		return &ValidationError{Field: "response", Message: "matcher is attached without a response"}
	case d.Response != nil && d.Respond != nil:
		return &ValidationError{Field: "response", Message: "cannot specify both a static response and a responder"}
	}

	if d.Times < 0 {
		return &ValidationError{Field: "times", Message: "times must be >= 0"}
	}

	if err := d.Matcher.Validate(); err != nil {
		return err
	}
	if d.Response != nil {
		return d.Response.Validate()
	}
	return nil
}

// Validate checks the matcher fields for syntax errors.
func (m *HTTPMatcher) Validate() error {
	if !m.HasCriteria() {
		return &ValidationError{Field: "matcher", Message: "at least one matching criterion must be specified"}
	}

	if m.Method != "" && !httpguts.ValidHeaderFieldName(m.Method) {
		return &ValidationError{
			Field:   "matcher.method",
			Message: fmt.Sprintf("invalid HTTP method: %s", m.Method),
		}
	}

	if m.Path != "" && !strings.HasPrefix(m.Path, "/") && !strings.HasPrefix(m.Path, "*") {
		return &ValidationError{Field: "matcher.path", Message: "path must start with /"}
	}

	if m.Path != "" && m.PathPattern != "" {
		return &ValidationError{
			Field:   "matcher",
			Message: "cannot specify both path and pathPattern",
		}
	}

	if m.PathPattern != "" {
		if _, err := regexp.Compile(m.PathPattern); err != nil {
			return &ValidationError{
				Field:   "matcher.pathPattern",
				Message: fmt.Sprintf("invalid regex pattern: %s", err.Error()),
			}
		}
	}

	if m.BodyPattern != "" {
		if _, err := regexp.Compile(m.BodyPattern); err != nil {
			return &ValidationError{
				Field:   "matcher.bodyPattern",
				Message: fmt.Sprintf("invalid regex pattern: %s", err.Error()),
			}
		}
	}

	for name := range m.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return &ValidationError{
				Field:   "matcher.headers",
				Message: fmt.Sprintf("invalid header name: %s", name),
			}
		}
	}
	for _, name := range m.HeadersAbsent {
		if !httpguts.ValidHeaderFieldName(name) {
			return &ValidationError{
				Field:   "matcher.headersAbsent",
				Message: fmt.Sprintf("invalid header name: %s", name),
			}
		}
		if _, ok := m.Headers[name]; ok {
			return &ValidationError{
				Field:   "matcher.headersAbsent",
				Message: fmt.Sprintf("header %s is both required and rejected", name),
			}
		}
	}

	if m.BodyEquals != "" && m.BodyContains != "" {
		return &ValidationError{
			Field:   "matcher",
			Message: "cannot specify both bodyEquals and bodyContains",
		}
	}

	if m.JSONCompareDepth < 0 {
		return &ValidationError{Field: "matcher.jsonCompareDepth", Message: "jsonCompareDepth must be >= 0"}
	}

	for path := range m.BodyJSONPath {
		if _, err := jp.ParseString(path); err != nil {
			return &ValidationError{
				Field:   "matcher.bodyJsonPath",
				Message: fmt.Sprintf("invalid JSONPath expression %q: %s", path, err.Error()),
			}
		}
	}

	if g := m.GraphQL; g != nil {
		switch g.OperationType {
		case "", "query", "mutation", "subscription":
		default:
			return &ValidationError{
				Field:   "matcher.graphql.operationType",
				Message: fmt.Sprintf("unknown operation type: %s", g.OperationType),
			}
		}
		if g.OperationName == "" && g.OperationType == "" {
			return &ValidationError{Field: "matcher.graphql", Message: "operationName or operationType is required"}
		}
	}

	return nil
}

// Validate checks the static response.
func (r *HTTPResponse) Validate() error {
	if r.StatusCode != 0 && (r.StatusCode < 100 || r.StatusCode > 599) {
		return &ValidationError{
			Field:   "response.statusCode",
			Message: fmt.Sprintf("status code must be between 100 and 599, got %d", r.StatusCode),
		}
	}
	if r.DelayMs < 0 {
		return &ValidationError{Field: "response.delayMs", Message: "delayMs must be >= 0"}
	}
	for name := range r.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return &ValidationError{
				Field:   "response.headers",
				Message: fmt.Sprintf("invalid header name: %s", name),
			}
		}
	}
	return nil
}
