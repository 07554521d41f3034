package matching

import (
	"fmt"
	"maps"
	"net"
	"regexp"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/expr-lang/expr/vm"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/intercept/pkg/mock"
)

// Options tune how a pool evaluates its matchers.
type Options struct {
	// CaseSensitivePaths compares paths byte for byte. When false, paths
	// are case-folded before comparison.
	CaseSensitivePaths bool

	// StrictHeaders requires every request header to be declared by the
	// matcher, except the ignored ones.
	StrictHeaders bool

	// IgnoredHeaders replaces DefaultIgnoredHeaders in strict header mode.
	IgnoredHeaders []string
}

func (o Options) ignoredHeaders() []string {
	if o.IgnoredHeaders != nil {
		return o.IgnoredHeaders
	}
	return DefaultIgnoredHeaders
}

// Result is the outcome of Match.
type Result struct {
	Matched bool
	Score   int
	// PathParams holds {name} segments, * segments (keyed "0", "1", ...)
	// and named regex captures.
	PathParams map[string]string
	// JSONPath holds the values selected by JSONPath conditions, keyed by
	// the sanitized expression ("$.user.id" becomes "user_id").
	JSONPath map[string]interface{}
}

// Matcher is a compiled mock.HTTPMatcher. It is safe for concurrent use.
type Matcher struct {
	spec *mock.HTTPMatcher

	hostName string
	hostPort string

	path       *pathTemplate
	pathRe     *regexp.Regexp
	pathReFold *regexp.Regexp
	bodyRe     *regexp.Regexp

	bodyJSON  interface{}
	jsonDepth int
	jsonPaths []jsonPathCondition
	schema    *jsonschema.Schema
	xpaths    []xpathCondition
	program   *vm.Program
}

// Compile validates m and prepares it for evaluation.
func Compile(m *mock.HTTPMatcher) (*Matcher, error) {
	if m == nil {
		return nil, &mock.ValidationError{Field: "matcher", Message: "matcher is required"}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	c := &Matcher{spec: m, jsonDepth: m.JSONCompareDepth}
	if c.jsonDepth == 0 {
		c.jsonDepth = mock.DefaultJSONCompareDepth
	}

	if m.Host != "" {
		c.hostName = m.Host
		if h, p, err := net.SplitHostPort(m.Host); err == nil {
			c.hostName, c.hostPort = h, p
		}
	}

	if m.Path != "" {
		c.path = compilePath(m.Path)
	}

	var err error
	if m.PathPattern != "" {
		if c.pathRe, err = compilePathPattern(m.PathPattern, true); err != nil {
			return nil, fieldError("matcher.pathPattern", err)
		}
		if c.pathReFold, err = compilePathPattern(m.PathPattern, false); err != nil {
			return nil, fieldError("matcher.pathPattern", err)
		}
	}
	if m.BodyPattern != "" {
		if c.bodyRe, err = regexp.Compile(m.BodyPattern); err != nil {
			return nil, fieldError("matcher.bodyPattern", err)
		}
	}
	if m.BodyJSON != nil {
		c.bodyJSON = normalizeJSON(m.BodyJSON)
	}
	if len(m.BodyJSONPath) > 0 {
		if c.jsonPaths, err = compileJSONPath(m.BodyJSONPath); err != nil {
			return nil, fieldError("matcher.bodyJsonPath", err)
		}
	}
	if m.BodySchema != nil {
		if c.schema, err = compileBodySchema(m.BodySchema); err != nil {
			return nil, fieldError("matcher.bodySchema", err)
		}
	}
	if len(m.BodyXPath) > 0 {
		if c.xpaths, err = compileXPath(m.BodyXPath); err != nil {
			return nil, fieldError("matcher.bodyXPath", err)
		}
	}
	if m.Expr != "" {
		if c.program, err = compileExpr(m.Expr); err != nil {
			return nil, fieldError("matcher.expr", err)
		}
	}
	return c, nil
}

func fieldError(field string, err error) error {
	return &mock.ValidationError{Field: field, Message: err.Error()}
}

// Spec returns the matcher definition this Matcher was compiled from.
func (m *Matcher) Spec() *mock.HTTPMatcher {
	return m.spec
}

// Match reports whether r satisfies every condition. Evaluation stops at
// the first failing condition.
func (m *Matcher) Match(r *mock.Request, opts Options) Result {
	ev := m.evaluate(r, opts, true)
	if ev.failed {
		return Result{}
	}
	return Result{
		Matched:    true,
		Score:      ev.score,
		PathParams: ev.pathParams,
		JSONPath:   ev.jsonPath,
	}
}

// Evaluate checks every condition without stopping and returns one
// FieldResult per condition, in evaluation order.
func (m *Matcher) Evaluate(r *mock.Request, opts Options) []FieldResult {
	return m.evaluate(r, opts, false).fields
}

// evaluation accumulates field results for one request.
type evaluation struct {
	req        *mock.Request
	opts       Options
	stopOnFail bool

	fields     []FieldResult
	score      int
	maxScore   int
	failed     bool
	pathParams map[string]string
	jsonPath   map[string]interface{}

	jsonParsed bool
	jsonValue  interface{}
	jsonOK     bool

	xmlParsed bool
	xmlDoc    *etree.Document
	xmlErr    error
}

func (ev *evaluation) add(f FieldResult) {
	ev.fields = append(ev.fields, f)
	ev.maxScore += f.MaxScore
	if f.Matched {
		ev.score += f.Score
	} else {
		ev.failed = true
	}
}

func (ev *evaluation) done() bool {
	return ev.stopOnFail && ev.failed
}

func (ev *evaluation) json() (interface{}, bool) {
	if !ev.jsonParsed {
		ev.jsonValue, ev.jsonOK = ev.req.Body.JSON()
		ev.jsonParsed = true
	}
	return ev.jsonValue, ev.jsonOK
}

func (ev *evaluation) xml() (*etree.Document, error) {
	if !ev.xmlParsed {
		ev.xmlDoc, ev.xmlErr = parseXML(ev.req.Body)
		ev.xmlParsed = true
	}
	return ev.xmlDoc, ev.xmlErr
}

func (m *Matcher) evaluate(r *mock.Request, opts Options, stopOnFail bool) *evaluation {
	ev := &evaluation{req: r, opts: opts, stopOnFail: stopOnFail}
	checks := []func(*evaluation){
		m.checkMethod,
		m.checkHost,
		m.checkPath,
		m.checkHeaders,
		m.checkQuery,
		m.checkBody,
		m.checkJSON,
		m.checkXML,
		m.checkGraphQL,
		m.checkJWT,
		m.checkProgrammable,
	}
	for _, check := range checks {
		check(ev)
		if ev.done() {
			break
		}
	}
	return ev
}

func (m *Matcher) checkMethod(ev *evaluation) {
	if m.spec.Method == "" {
		return
	}
	matched := MatchMethod(m.spec.Method, ev.req.Method)
	f := FieldResult{
		Field:    "method",
		Matched:  matched,
		MaxScore: ScoreMethod,
		Expected: strings.ToUpper(m.spec.Method),
		Actual:   ev.req.Method,
	}
	if matched {
		f.Score = ScoreMethod
	} else {
		f.Reason = fmt.Sprintf("method expected %q, got %q", f.Expected, ev.req.Method)
	}
	ev.add(f)
}

// MatchMethod checks if the request method matches (case-insensitive).
func MatchMethod(expected, actual string) bool {
	return strings.EqualFold(expected, actual)
}

func (m *Matcher) checkHost(ev *evaluation) {
	if m.spec.Host == "" {
		return
	}
	matched := strings.EqualFold(m.hostName, ev.req.Hostname())
	if matched && m.hostPort != "" {
		matched = m.hostPort == ev.req.Port()
	}
	f := FieldResult{
		Field:    "host",
		Matched:  matched,
		MaxScore: ScoreHost,
		Expected: m.spec.Host,
		Actual:   ev.req.Host,
	}
	if matched {
		f.Score = ScoreHost
	} else {
		f.Reason = fmt.Sprintf("host expected %q, got %q", m.spec.Host, ev.req.Host)
	}
	ev.add(f)
}

func (m *Matcher) checkPath(ev *evaluation) {
	path := ev.req.Path
	switch {
	case m.path != nil:
		score, params := m.path.match(path, ev.opts.CaseSensitivePaths)
		f := FieldResult{
			Field:    "path",
			Matched:  score > 0,
			Score:    score,
			MaxScore: m.path.score,
			Expected: m.spec.Path,
			Actual:   path,
		}
		if f.Matched {
			ev.pathParams = params
		} else {
			f.Reason = fmt.Sprintf("path expected %q, got %q", m.spec.Path, path)
		}
		ev.add(f)

	case m.spec.PathPattern != "":
		re := m.pathReFold
		if ev.opts.CaseSensitivePaths {
			re = m.pathRe
		}
		score, captures := MatchPathPattern(re, path)
		f := FieldResult{
			Field:    "pathPattern",
			Matched:  score > 0,
			Score:    score,
			MaxScore: ScorePathPattern,
			Expected: m.spec.PathPattern,
			Actual:   path,
		}
		if f.Matched {
			ev.pathParams = captures
		} else {
			f.Reason = fmt.Sprintf("path expected to match %q, got %q", m.spec.PathPattern, path)
		}
		ev.add(f)
	}
}

func (m *Matcher) checkHeaders(ev *evaluation) {
	headers := ev.req.Header
	for _, name := range sortedKeys(m.spec.Headers) {
		expected := m.spec.Headers[name]
		values := headers.Values(name)
		matched := MatchHeaderPattern(name, expected, headers)
		f := FieldResult{
			Field:    "header " + name,
			Matched:  matched,
			MaxScore: ScoreHeader,
			Expected: expected,
			Actual:   strings.Join(values, ", "),
		}
		switch {
		case matched:
			f.Score = ScoreHeader
		case len(values) == 0:
			f.Actual = "(missing)"
			f.Reason = fmt.Sprintf("header %s missing", name)
		default:
			f.Reason = fmt.Sprintf("header %s value mismatch (expected %q, got %q)", name, expected, f.Actual)
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}

	for _, name := range m.spec.HeadersAbsent {
		present := headers.Has(name)
		f := FieldResult{
			Field:    "header " + name,
			Matched:  !present,
			MaxScore: ScoreHeaderAbsent,
			Expected: "(absent)",
			Actual:   "(absent)",
		}
		if present {
			f.Actual = strings.Join(headers.Values(name), ", ")
			f.Reason = fmt.Sprintf("header %s present but expected to be absent", name)
		} else {
			f.Score = ScoreHeaderAbsent
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}

	if ev.opts.StrictHeaders {
		extra := undeclaredHeaders(m.spec.Headers, ev.opts.ignoredHeaders(), headers)
		f := FieldResult{
			Field:    "undeclared headers",
			Matched:  len(extra) == 0,
			MaxScore: ScoreStrictHeaders,
			Actual:   strings.Join(extra, ", "),
		}
		if f.Matched {
			f.Score = ScoreStrictHeaders
		} else {
			f.Reason = "undeclared header(s) " + strings.Join(extra, ", ")
		}
		ev.add(f)
	}
}

func (m *Matcher) checkQuery(ev *evaluation) {
	query := ev.req.Query
	for _, key := range sortedKeys(m.spec.QueryParams) {
		expected := m.spec.QueryParams[key]
		values := query.Values(key)
		matched := MatchQueryParam(key, expected, query)
		f := FieldResult{
			Field:    "query " + key,
			Matched:  matched,
			MaxScore: ScoreQueryParam,
			Expected: expected,
			Actual:   strings.Join(values, ", "),
		}
		switch {
		case matched:
			f.Score = ScoreQueryParam
		case len(values) == 0:
			f.Actual = "(missing)"
			f.Reason = fmt.Sprintf("query param %s missing", key)
		default:
			f.Reason = fmt.Sprintf("query param %s value mismatch (expected %q, got %q)", key, expected, f.Actual)
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}

	if m.spec.QueryStrict {
		extra := undeclaredQueryKeys(m.spec.QueryParams, query)
		f := FieldResult{
			Field:    "query keys",
			Matched:  len(extra) == 0,
			MaxScore: ScoreQueryStrict,
			Actual:   strings.Join(extra, ", "),
		}
		if f.Matched {
			f.Score = ScoreQueryStrict
		} else {
			f.Reason = "undeclared query param(s) " + strings.Join(extra, ", ")
		}
		ev.add(f)
	}
}

func (m *Matcher) checkJSON(ev *evaluation) {
	if m.bodyJSON != nil {
		f := FieldResult{Field: "bodyJson", MaxScore: ScoreBodyJSON, Expected: m.bodyJSON}
		if m.spec.BodyJSONExact {
			f.Field = "bodyJsonExact"
		}
		data, ok := ev.json()
		if !ok {
			f.Actual = truncate(string(ev.req.Body), 200)
			f.Reason = "body is not valid JSON"
		} else {
			f.Actual = data
			diffs := compareJSON(m.bodyJSON, data, m.jsonDepth, m.spec.BodyJSONExact)
			if len(diffs) == 0 {
				f.Matched = true
				f.Score = ScoreBodyJSON
			} else {
				f.Reason = "body " + diffs[0].String()
				if len(diffs) > 1 {
					f.Reason += fmt.Sprintf(" (and %d more)", len(diffs)-1)
				}
				if !ev.stopOnFail {
					f.Details = renderJSONDiff(m.bodyJSON, ev.req.Body)
				}
			}
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}

	m.checkJSONPath(ev)
	if ev.done() {
		return
	}

	if m.schema != nil {
		f := FieldResult{Field: "bodySchema", MaxScore: ScoreBodySchema}
		data, ok := ev.json()
		switch {
		case !ok:
			f.Reason = "body is not valid JSON"
		default:
			if err := m.schema.Validate(data); err != nil {
				f.Actual = schemaViolation(err)
				f.Reason = "body does not conform to schema: " + schemaViolation(err)
			} else {
				f.Matched = true
				f.Score = ScoreBodySchema
			}
		}
		ev.add(f)
	}
}

func (m *Matcher) checkXML(ev *evaluation) {
	for _, c := range m.xpaths {
		f := FieldResult{Field: "xpath " + c.expr, MaxScore: ScoreXPathCondition, Expected: c.expected}
		doc, err := ev.xml()
		if err != nil {
			f.Reason = "body is not valid XML: " + err.Error()
		} else {
			actual, found := extractXPath(doc, c)
			f.Actual = actual
			switch {
			case found && actual == c.expected:
				f.Matched = true
				f.Score = ScoreXPathCondition
			case !found:
				f.Reason = fmt.Sprintf("xpath %s not found", c.expr)
			default:
				f.Reason = fmt.Sprintf("xpath %s expected %q, got %q", c.expr, c.expected, actual)
			}
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}
}

func (m *Matcher) checkGraphQL(ev *evaluation) {
	want := m.spec.GraphQL
	if want == nil {
		return
	}
	expected := graphqlOp{Name: want.OperationName, Type: want.OperationType}
	f := FieldResult{Field: "graphql", MaxScore: ScoreGraphQL, Expected: expected.String()}
	got, err := graphqlOperation(ev.req)
	switch {
	case err != nil:
		f.Reason = err.Error()
	case matchGraphQL(want, got):
		f.Matched = true
		f.Score = ScoreGraphQL
		f.Actual = got.String()
	default:
		f.Actual = got.String()
		f.Reason = fmt.Sprintf("graphql operation expected %q, got %q", expected.String(), got.String())
	}
	ev.add(f)
}

func (m *Matcher) checkJWT(ev *evaluation) {
	if len(m.spec.JWTClaims) == 0 {
		return
	}
	claims, err := bearerClaims(ev.req.Header)
	for _, name := range sortedKeys(m.spec.JWTClaims) {
		expected := m.spec.JWTClaims[name]
		f := FieldResult{Field: "jwt claim " + name, MaxScore: ScoreJWTClaim, Expected: expected}
		if err != nil {
			f.Reason = fmt.Sprintf("jwt claim %s unavailable: %v", name, err)
		} else if actual, ok := claims[name]; !ok {
			f.Reason = fmt.Sprintf("jwt claim %s missing", name)
		} else {
			f.Actual = actual
			if matchClaim(expected, actual) {
				f.Matched = true
				f.Score = ScoreJWTClaim
			} else {
				f.Reason = fmt.Sprintf("jwt claim %s expected %s, got %s", name, jsonText(expected), jsonText(actual))
			}
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}
}

func (m *Matcher) checkProgrammable(ev *evaluation) {
	if m.program != nil {
		f := FieldResult{Field: "expr", MaxScore: ScoreExpr, Expected: m.spec.Expr}
		ok, err := runExpr(m.program, newExprEnv(ev.req))
		switch {
		case err != nil:
			f.Reason = fmt.Sprintf("expression %q failed: %v", m.spec.Expr, err)
		case ok:
			f.Matched = true
			f.Score = ScoreExpr
		default:
			f.Reason = fmt.Sprintf("expression %q evaluated to false", m.spec.Expr)
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}

	if m.spec.Predicate != nil {
		f := FieldResult{Field: "predicate", MaxScore: ScorePredicate}
		if m.spec.Predicate(ev.req) {
			f.Matched = true
			f.Score = ScorePredicate
		} else {
			f.Reason = "predicate rejected the request"
		}
		ev.add(f)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
