package mock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// MaxBodySize is the largest intercepted request body FromHTTP accepts.
const MaxBodySize = 10 << 20

// ErrBodyTooLarge is returned by FromHTTP for bodies over MaxBodySize.
var ErrBodyTooLarge = errors.New("request body too large")

// Header is a multimap of header names to ordered values.
// Names are stored in canonical form, so lookups are case-insensitive.
type Header map[string][]string

// Add appends value to the values already stored under name.
func (h Header) Add(name, value string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	h[key] = append(h[key], value)
}

// Set replaces all values stored under name.
func (h Header) Set(name, value string) {
	h[textproto.CanonicalMIMEHeaderKey(name)] = []string{value}
}

// Values returns every value stored under name, in insertion order.
func (h Header) Values(name string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Get returns the first value stored under name, or "".
func (h Header) Get(name string) string {
	if v := h.Values(name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// HasValue reports whether name carries value.
func (h Header) HasValue(name, value string) bool {
	return slices.Contains(h.Values(name), value)
}

// Names returns the header names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return Header{}
	}
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = slices.Clone(v)
	}
	return out
}

// QueryParam is one key/value pair of a query string.
type QueryParam struct {
	Key   string
	Value string
}

// Query is an ordered list of query parameters. The same key may appear
// more than once.
type Query []QueryParam

// ParseQuery parses a raw query string, keeping parameter order.
func ParseQuery(raw string) (Query, error) {
	var q Query
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid query value %q: %w", v, err)
		}
		q = append(q, QueryParam{Key: key, Value: value})
	}
	return q, nil
}

// Add appends a parameter.
func (q *Query) Add(key, value string) {
	*q = append(*q, QueryParam{Key: key, Value: value})
}

// Values returns every value of key in order.
func (q Query) Values(key string) []string {
	var out []string
	for _, p := range q {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Get returns the first value of key, or "".
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	for _, p := range q {
		if p.Key == key {
			return true
		}
	}
	return false
}

// HasValue reports whether key carries value.
func (q Query) HasValue(key, value string) bool {
	for _, p := range q {
		if p.Key == key && p.Value == value {
			return true
		}
	}
	return false
}

// Keys returns the distinct keys in first-seen order.
func (q Query) Keys() []string {
	var keys []string
	for _, p := range q {
		if !slices.Contains(keys, p.Key) {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Equal compares two queries. When strict is false the comparison ignores
// ordering and treats both sides as multisets of pairs. When strict is true
// the parameters must appear in the same order.
func (q Query) Equal(other Query, strict bool) bool {
	if len(q) != len(other) {
		return false
	}
	if strict {
		return slices.Equal(q, other)
	}
	a, b := q.sorted(), other.sorted()
	return slices.Equal(a, b)
}

func (q Query) sorted() Query {
	out := slices.Clone(q)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Encode renders the query in order.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// Body is an opaque request or response payload.
type Body []byte

// Equal reports whether both bodies hold the same bytes.
func (b Body) Equal(other Body) bool {
	return bytes.Equal(b, other)
}

// String returns the body as text.
func (b Body) String() string {
	return string(b)
}

// JSON decodes the body. The boolean is false when the body is empty or is
// not valid JSON.
func (b Body) JSON() (interface{}, bool) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Request is an intercepted HTTP request as seen by the matchers.
// Treat it as immutable once constructed.
type Request struct {
	Method string
	Scheme string
	// Host is host[:port] as addressed by the client.
	Host   string
	Path   string
	Query  Query
	Header Header
	Body   Body
}

// NewRequest builds a request from a method and a target, which is either
// an absolute URL or a path with an optional query.
func NewRequest(method, target string) (*Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid request target %q: %w", target, err)
	}
	q, err := ParseQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &Request{
		Method: strings.ToUpper(method),
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   path,
		Query:  q,
		Header: Header{},
	}, nil
}

// FromHTTP captures an *http.Request. The body is read fully and put back,
// so the original request can still be forwarded.
func FromHTTP(r *http.Request) (*Request, error) {
	req := &Request{
		Method: strings.ToUpper(r.Method),
		Path:   "/",
		Header: Header{},
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if r.URL != nil {
		req.Scheme = r.URL.Scheme
		req.Host = r.URL.Host
		if r.URL.Path != "" {
			req.Path = r.URL.Path
		}
		q, err := ParseQuery(r.URL.RawQuery)
		if err != nil {
			return nil, err
		}
		req.Query = q
	}
	if r.Host != "" {
		req.Host = r.Host
	}
	for name, values := range r.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		if len(body) > MaxBodySize {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxBodySize)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		req.Body = body
	}
	return req, nil
}

// Hostname returns Host without the port.
func (r *Request) Hostname() string {
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	return host
}

// Port returns the explicit port, or the scheme default.
func (r *Request) Port() string {
	if _, port, err := net.SplitHostPort(r.Host); err == nil {
		return port
	}
	if r.Scheme == "https" {
		return "443"
	}
	return "80"
}

// Target returns the path with the encoded query, if any.
func (r *Request) Target() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// String renders "METHOD target" for log lines and error messages.
func (r *Request) String() string {
	return r.Method + " " + r.Target()
}

// Dump renders the request headers and body in a readable block.
func (r *Request) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", r.Method, r.Target())
	if r.Host != "" {
		fmt.Fprintf(&sb, "  host: %s\n", r.Host)
	}

	names := r.Header.Names()
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		for _, v := range r.Header[n] {
			fmt.Fprintf(&sb, "  %*s: %s\n", width, n, v)
		}
	}
	if len(r.Body) > 0 {
		fmt.Fprintf(&sb, "  body: %s\n", truncate(string(r.Body), 2048))
	} else {
		sb.WriteString("  body: (empty)\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
