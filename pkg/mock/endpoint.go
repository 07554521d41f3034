package mock

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Endpoint describes a remote API by host and port. Its builder methods
// return definitions already bound to that host.
type Endpoint struct {
	Hostname string
	Port     int
	// Scheme overrides the scheme derived from the port.
	Scheme string
}

// NewEndpoint returns an endpoint with the hostname converted to ASCII.
// A port of 0 means the scheme default.
func NewEndpoint(hostname string, port int) Endpoint {
	if ascii, err := idna.Lookup.ToASCII(hostname); err == nil {
		hostname = ascii
	}
	return Endpoint{Hostname: strings.ToLower(hostname), Port: port}
}

// Protocol returns the scheme, https for port 443 and http otherwise.
func (e Endpoint) Protocol() string {
	if e.Scheme != "" {
		return e.Scheme
	}
	if e.Port == 443 {
		return "https"
	}
	return "http"
}

func (e Endpoint) port() int {
	if e.Port != 0 {
		return e.Port
	}
	if e.Protocol() == "https" {
		return 443
	}
	return 80
}

// HostPort returns hostname:port.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Hostname, strconv.Itoa(e.port()))
}

// URL returns the base URL, eliding default ports.
func (e Endpoint) URL() string {
	p := e.port()
	if (p == 80 && e.Protocol() == "http") || (p == 443 && e.Protocol() == "https") {
		return e.Protocol() + "://" + e.Hostname
	}
	return e.Protocol() + "://" + e.HostPort()
}

// URLWithPath joins the base URL and path.
func (e Endpoint) URLWithPath(path string) string {
	return e.URL() + path
}

// Get returns a definition for GET path on this endpoint.
func (e Endpoint) Get(path string) *Definition { return e.Ext(http.MethodGet, path) }

// Post returns a definition for POST path on this endpoint.
func (e Endpoint) Post(path string) *Definition { return e.Ext(http.MethodPost, path) }

// Put returns a definition for PUT path on this endpoint.
func (e Endpoint) Put(path string) *Definition { return e.Ext(http.MethodPut, path) }

// Patch returns a definition for PATCH path on this endpoint.
func (e Endpoint) Patch(path string) *Definition { return e.Ext(http.MethodPatch, path) }

// Delete returns a definition for DELETE path on this endpoint.
func (e Endpoint) Delete(path string) *Definition { return e.Ext(http.MethodDelete, path) }

// Head returns a definition for HEAD path on this endpoint.
func (e Endpoint) Head(path string) *Definition { return e.Ext(http.MethodHead, path) }

// Options returns a definition for OPTIONS path on this endpoint.
func (e Endpoint) Options(path string) *Definition { return e.Ext(http.MethodOptions, path) }

// Trace returns a definition for TRACE path on this endpoint.
func (e Endpoint) Trace(path string) *Definition { return e.Ext(http.MethodTrace, path) }

// Connect returns a definition for CONNECT path on this endpoint.
func (e Endpoint) Connect(path string) *Definition { return e.Ext(http.MethodConnect, path) }

// Ext returns a definition for an arbitrary verb. A query string in path
// becomes required query parameters.
func (e Endpoint) Ext(verb, path string) *Definition {
	m := &HTTPMatcher{
		Method: strings.ToUpper(verb),
		Host:   e.HostPort(),
		Path:   path,
	}
	if p, raw, ok := strings.Cut(path, "?"); ok {
		m.Path = p
		if q, err := ParseQuery(raw); err == nil && len(q) > 0 {
			m.QueryParams = make(map[string]string, len(q))
			for _, kv := range q {
				m.QueryParams[kv.Key] = kv.Value
			}
		}
	}
	return &Definition{Matcher: m, Response: &HTTPResponse{StatusCode: 200}, Times: 1}
}
