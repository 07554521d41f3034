package portability

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/mock"
)

// ImportOptions configures how operations become definitions.
type ImportOptions struct {
	// Name is the provider name. Defaults to a slug of info.title.
	Name string

	// Times is the consumption limit of every generated definition.
	// Zero keeps them reusable.
	Times int

	// MatchHost restricts definitions to the host of the first server.
	MatchHost bool

	// QueryExamples requires every required query parameter that declares
	// an example to carry that value.
	QueryExamples bool

	// Status selects the documented response to serve when present.
	// Otherwise the first of 200, 201, 202 and 204 is used, then the
	// lowest other success code.
	Status int

	// SkipValidation accepts documents that fail OpenAPI validation.
	SkipValidation bool
}

// OpenAPIProvider supplies one definition per operation of an API
// description.
type OpenAPIProvider struct {
	name string
	doc  *openapi3.T
	defs []*mock.Definition
}

var _ mock.Provider = (*OpenAPIProvider)(nil)

// LoadOpenAPI reads an OpenAPI 3.x or Swagger 2.0 document from path.
func LoadOpenAPI(path string, opts ImportOptions) (*OpenAPIProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImportError{Source: path, Message: "reading document", Cause: err}
	}
	p, err := ParseOpenAPI(data, opts)
	if err != nil {
		if ie, ok := err.(*ImportError); ok && ie.Source == "" {
			ie.Source = path
		}
		return nil, err
	}
	return p, nil
}

// ParseOpenAPI parses an OpenAPI 3.x or Swagger 2.0 document in YAML or
// JSON.
func ParseOpenAPI(data []byte, opts ImportOptions) (*OpenAPIProvider, error) {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, &ImportError{Message: "failed to parse document", Cause: err}
	}

	loader := openapi3.NewLoader()
	var doc *openapi3.T
	switch {
	case probe.OpenAPI != "":
		d, err := loader.LoadFromData(data)
		if err != nil {
			return nil, &ImportError{Message: "failed to load OpenAPI 3.x document", Cause: err}
		}
		doc = d
	case probe.Swagger != "":
		d, err := swaggerToV3(loader, data)
		if err != nil {
			return nil, &ImportError{Message: "failed to convert Swagger 2.0 document", Cause: err}
		}
		doc = d
	default:
		return nil, &ImportError{Message: "unknown document", Cause: ErrUnsupportedDocument}
	}

	if !opts.SkipValidation {
		if err := doc.Validate(loader.Context); err != nil {
			return nil, &ImportError{Message: "invalid OpenAPI document", Cause: err}
		}
	}

	name := opts.Name
	if name == "" && doc.Info != nil {
		name = slug(doc.Info.Title)
	}
	if name == "" {
		name = "openapi"
	}

	defs, err := operationsToDefinitions(doc, opts)
	if err != nil {
		return nil, err
	}
	return &OpenAPIProvider{name: name, doc: doc, defs: defs}, nil
}

func swaggerToV3(loader *openapi3.Loader, data []byte) (*openapi3.T, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(asJSON, &doc2); err != nil {
		return nil, err
	}
	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, err
	}
	if err := loader.ResolveRefsIn(doc3, nil); err != nil {
		return nil, err
	}
	return doc3, nil
}

// Name implements mock.Provider.
func (p *OpenAPIProvider) Name() string { return p.name }

// Supply returns a fresh copy of the generated definitions.
func (p *OpenAPIProvider) Supply() []*mock.Definition {
	out := make([]*mock.Definition, len(p.defs))
	for i, d := range p.defs {
		out[i] = d.Clone()
	}
	return out
}

// Document returns the parsed document.
func (p *OpenAPIProvider) Document() *openapi3.T { return p.doc }

// Fixture returns the generated definitions as a fixture file.
func (p *OpenAPIProvider) Fixture() *config.Fixture {
	return &config.Fixture{
		Version: config.CurrentVersion,
		Title:   p.name,
		Mocks:   p.Supply(),
	}
}

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

func operationsToDefinitions(doc *openapi3.T, opts ImportOptions) ([]*mock.Definition, error) {
	host, basePath := serverPrefix(doc.Servers)
	if doc.Paths == nil {
		return nil, nil
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var defs []*mock.Definition
	for _, path := range paths {
		item := items[path]
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			def, err := operationToDefinition(basePath+path, method, op, opts)
			if err != nil {
				return nil, &ImportError{Message: fmt.Sprintf("%s %s", method, path), Cause: err}
			}
			if opts.MatchHost {
				def.Matcher.Host = host
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func operationToDefinition(path, method string, op *openapi3.Operation, opts ImportOptions) (*mock.Definition, error) {
	matcher := &mock.HTTPMatcher{Method: method}
	if literal, pattern := pathMatcher(path); pattern != "" {
		matcher.PathPattern = pattern
	} else {
		matcher.Path = literal
	}

	if opts.QueryExamples {
		for _, ref := range op.Parameters {
			param := ref.Value
			if param == nil || param.In != openapi3.ParameterInQuery || !param.Required {
				continue
			}
			if ex, ok := parameterExample(param); ok {
				if matcher.QueryParams == nil {
					matcher.QueryParams = make(map[string]string)
				}
				matcher.QueryParams[param.Name] = ex
			}
		}
	}

	name := op.Summary
	if name == "" {
		name = method + " " + path
	}

	status, resp := findBestResponse(op.Responses, opts.Status)
	response := &mock.HTTPResponse{StatusCode: status}
	if err := fillResponse(response, resp); err != nil {
		return nil, err
	}

	return &mock.Definition{
		ID:          op.OperationID,
		Name:        name,
		Description: op.Description,
		Matcher:     matcher,
		Response:    response,
		Times:       opts.Times,
	}, nil
}

// fillResponse sets headers and body from the documented response.
func fillResponse(out *mock.HTTPResponse, resp *openapi3.Response) error {
	if out.StatusCode == 204 || out.StatusCode == 304 {
		return nil
	}
	if resp == nil || len(resp.Content) == 0 {
		out.Body = generateDefaultBody(out.StatusCode)
		return nil
	}

	out.Headers = make(map[string]string)
	for _, name := range sortedKeys(resp.Headers) {
		h := resp.Headers[name]
		if h == nil || h.Value == nil {
			continue
		}
		if ex, ok := headerExample(h.Value); ok {
			out.Headers[name] = ex
		}
	}

	contentType := pickContentType(resp.Content)
	out.Headers["Content-Type"] = contentType
	media := resp.Content[contentType]

	value, ok := mediaExample(media)
	if !ok {
		if isJSON(contentType) {
			out.Body = generateDefaultBody(out.StatusCode)
		}
		return nil
	}
	if s, isString := value.(string); isString && !isJSON(contentType) {
		out.Body = s
		return nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding example: %w", err)
	}
	out.Body = string(body)
	return nil
}

func mediaExample(media *openapi3.MediaType) (interface{}, bool) {
	if media == nil {
		return nil, false
	}
	if media.Example != nil {
		return media.Example, true
	}
	for _, key := range sortedKeys(media.Examples) {
		if ex := media.Examples[key]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return ex.Value.Value, true
		}
	}
	if media.Schema != nil {
		if v := newExampleGenerator().generate(media.Schema.Value, ""); v != nil {
			return v, true
		}
	}
	return nil, false
}

func parameterExample(p *openapi3.Parameter) (string, bool) {
	if p.Example != nil {
		return fmt.Sprint(p.Example), true
	}
	if p.Schema != nil && p.Schema.Value != nil && p.Schema.Value.Example != nil {
		return fmt.Sprint(p.Schema.Value.Example), true
	}
	return "", false
}

func headerExample(h *openapi3.Header) (string, bool) {
	return parameterExample(&h.Parameter)
}

// pickContentType prefers application/json, then any JSON media type,
// then the first in lexical order.
func pickContentType(content openapi3.Content) string {
	if _, ok := content["application/json"]; ok {
		return "application/json"
	}
	keys := sortedKeys(content)
	for _, k := range keys {
		if isJSON(k) {
			return k
		}
	}
	return keys[0]
}

func isJSON(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "application/json") || strings.Contains(ct, "+json")
}

// findBestResponse picks the documented response to serve.
func findBestResponse(responses *openapi3.Responses, preferred int) (int, *openapi3.Response) {
	if responses == nil || responses.Len() == 0 {
		return 200, nil
	}
	all := responses.Map()
	value := func(key string) *openapi3.Response {
		if ref := all[key]; ref != nil {
			return ref.Value
		}
		return nil
	}

	if preferred != 0 {
		if _, ok := all[strconv.Itoa(preferred)]; ok {
			return preferred, value(strconv.Itoa(preferred))
		}
	}
	for _, status := range []string{"200", "201", "202", "204"} {
		if _, ok := all[status]; ok {
			return parseStatusCode(status), value(status)
		}
	}

	keys := sortedKeys(all)
	for _, status := range keys {
		if code := parseStatusCode(status); code >= 200 && code < 300 {
			return code, value(status)
		}
	}
	if _, ok := all["2XX"]; ok {
		return 200, value("2XX")
	}
	if _, ok := all["default"]; ok {
		return 200, value("default")
	}
	for _, status := range keys {
		if code := parseStatusCode(status); code != 0 {
			return code, value(status)
		}
	}
	return 200, nil
}

// parseStatusCode parses a status code key. Ranges such as "4XX" and
// "default" yield 0.
func parseStatusCode(s string) int {
	code, err := strconv.Atoi(s)
	if err != nil || code < 100 || code > 599 {
		return 0
	}
	return code
}

// generateDefaultBody generates a default response body for a status code.
func generateDefaultBody(statusCode int) string {
	switch statusCode {
	case 200:
		return `{"status":"ok"}`
	case 201:
		return `{"id":1,"created":true}`
	case 204:
		return ""
	case 400:
		return `{"error":"Bad Request"}`
	case 401:
		return `{"error":"Unauthorized"}`
	case 403:
		return `{"error":"Forbidden"}`
	case 404:
		return `{"error":"Not Found"}`
	case 500:
		return `{"error":"Internal Server Error"}`
	default:
		return fmt.Sprintf(`{"status":%d}`, statusCode)
	}
}

// serverPrefix returns the host and path prefix of the first server URL.
// Server variables are replaced by their defaults.
func serverPrefix(servers openapi3.Servers) (host, basePath string) {
	if len(servers) == 0 || servers[0] == nil {
		return "", ""
	}
	s := servers[0]
	raw := s.URL
	for name, v := range s.Variables {
		if v != nil {
			raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	return u.Hostname(), strings.TrimRight(u.Path, "/")
}

var templateParam = regexp.MustCompile(`\{([^{}/]+)\}`)

// pathMatcher returns the path unchanged when every template parameter
// fills a whole segment, which the path matcher handles directly.
// Otherwise it returns an anchored pattern with a named group per
// parameter.
func pathMatcher(path string) (literal, pattern string) {
	whole := true
	for _, seg := range strings.Split(path, "/") {
		if strings.Contains(seg, "{") && !(strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && strings.Count(seg, "{") == 1) {
			whole = false
			break
		}
	}
	if whole {
		return path, ""
	}

	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range templateParam.FindAllStringSubmatchIndex(path, -1) {
		b.WriteString(regexp.QuoteMeta(path[last:loc[0]]))
		name := groupName(path[loc[2]:loc[3]])
		b.WriteString("(?P<" + name + ">[^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(path[last:]))
	b.WriteString("$")
	return "", b.String()
}

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func groupName(param string) string {
	name := nonWord.ReplaceAllString(param, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "p_" + name
	}
	return name
}

func slug(title string) string {
	s := strings.Trim(nonWord.ReplaceAllString(strings.ToLower(title), "-"), "-_")
	return strings.ReplaceAll(s, "_", "-")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
