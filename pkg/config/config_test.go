package config

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
)

const collectionYAML = `
version: "1"
name: users
mocks:
  - id: get-user
    name: get user
    matcher:
      method: GET
      path: /users/{id}
    response:
      statusCode: 200
      headers:
        X-Source: fixture
      body: {"id": "{{request.pathParam.id}}"}
      template: true
    times: 1
  - matcher:
      method: POST
      path: /users
      bodyJson: {"name": "ada"}
    response:
      statusCode: 201
`

func TestParse_Collection(t *testing.T) {
	f, err := Parse([]byte(collectionYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.Version != "1" || f.Title != "users" {
		t.Errorf("unexpected header: version=%q title=%q", f.Version, f.Title)
	}
	if f.Name() != "users" {
		t.Errorf("Name() = %q, want users", f.Name())
	}
	if len(f.Mocks) != 2 {
		t.Fatalf("expected 2 mocks, got %d", len(f.Mocks))
	}

	get := f.Mocks[0]
	if get.ID != "get-user" || get.Times != 1 {
		t.Errorf("unexpected first mock: id=%q times=%d", get.ID, get.Times)
	}
	if get.Matcher.Path != "/users/{id}" {
		t.Errorf("path = %q", get.Matcher.Path)
	}
	if get.Response.Body != `{"id":"{{request.pathParam.id}}"}` {
		t.Errorf("object body should be stored as JSON text, got %q", get.Response.Body)
	}
	if get.Response.Headers["X-Source"] != "fixture" {
		t.Errorf("headers = %v", get.Response.Headers)
	}

	post := f.Mocks[1]
	body, ok := post.Matcher.BodyJSON.(map[string]interface{})
	if !ok || body["name"] != "ada" {
		t.Errorf("bodyJson = %#v", post.Matcher.BodyJSON)
	}
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   int
	}{
		{
			name:   "single definition",
			input:  "matcher: {path: /a}\nresponse: {statusCode: 204}\n",
			format: FormatYAML,
			want:   1,
		},
		{
			name:   "bare list",
			input:  "- matcher: {path: /a}\n  response: {}\n- matcher: {path: /b}\n  response: {}\n",
			format: FormatYAML,
			want:   2,
		},
		{
			name:   "json collection",
			input:  `{"mocks": [{"matcher": {"path": "/a"}, "response": {"statusCode": 200, "body": [1, 2]}}]}`,
			format: FormatJSON,
			want:   1,
		},
		{
			name:   "json read as yaml",
			input:  `[{"matcher": {"path": "/a"}, "response": {}}]`,
			format: FormatYAML,
			want:   1,
		},
		{
			name:   "empty collection",
			input:  "mocks: []\n",
			format: FormatYAML,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(f.Mocks) != tt.want {
				t.Errorf("expected %d mocks, got %d", tt.want, len(f.Mocks))
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		format  Format
		wantErr error
		wantMsg string
	}{
		{
			name:    "empty",
			input:   "  \n",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "null document",
			input:   "~\n",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "bad yaml",
			input:   "mocks: [\n",
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "bad json",
			input:   `{"mocks": [}`,
			format:  FormatJSON,
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "scalar",
			input:   "hello\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "top level",
		},
		{
			name:    "unknown field",
			input:   "matcher: {path: /a}\nresponse: {}\npriority: 3\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "/mocks/0",
		},
		{
			name:    "missing response",
			input:   "matcher: {path: /a}\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "response",
		},
		{
			name:    "status out of range",
			input:   "matcher: {path: /a}\nresponse: {statusCode: 42}\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "/mocks/0/response/statusCode",
		},
		{
			name:    "negative times",
			input:   "matcher: {path: /a}\nresponse: {}\ntimes: -1\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "/mocks/0/times",
		},
		{
			name:    "empty matcher",
			input:   "matcher: {}\nresponse: {}\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "/mocks/0/matcher",
		},
		{
			name:    "invalid regex",
			input:   "matcher: {pathPattern: '(['}\nresponse: {}\n",
			wantErr: ErrInvalidFixture,
			wantMsg: "/mocks/0",
		},
		{
			name:    "duplicate ids",
			input:   "- {id: a, matcher: {path: /a}, response: {}}\n- {id: a, matcher: {path: /b}, response: {}}\n",
			wantErr: ErrInvalidFixture,
			wantMsg: `duplicate id "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v does not wrap %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("FIXTURE_HOST", "api.example.test")

	input := `
matcher:
  host: ${FIXTURE_HOST}
  path: /status
response:
  statusCode: ${FIXTURE_STATUS:-503}
`
	f, err := Parse([]byte(input), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := f.Mocks[0].Matcher.Host; got != "api.example.test" {
		t.Errorf("host = %q", got)
	}
	if got := f.Mocks[0].Response.StatusCode; got != 503 {
		t.Errorf("status = %d, want default 503", got)
	}
}

func TestValidateFixture(t *testing.T) {
	f := &Fixture{Mocks: []*mock.Definition{
		{Matcher: &mock.HTTPMatcher{Path: "/a"}, Response: &mock.HTTPResponse{}},
		nil,
		{Matcher: &mock.HTTPMatcher{Path: "/b"}},
	}}

	result := ValidateFixture(f)
	if result.IsValid() {
		t.Fatal("expected validation errors")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Path != "/mocks/1" {
		t.Errorf("first error path = %q", result.Errors[0].Path)
	}
	if !strings.HasPrefix(result.Errors[1].Path, "/mocks/2") {
		t.Errorf("second error path = %q", result.Errors[1].Path)
	}
	if !errors.Is(result.Err(), ErrInvalidFixture) {
		t.Errorf("Err() should wrap ErrInvalidFixture")
	}

	if err := ValidateFixture(&Fixture{}).Err(); err != nil {
		t.Errorf("empty fixture should be valid: %v", err)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	f, err := Parse([]byte(collectionYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := Marshal(f, format)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		back, err := Parse(data, format)
		if err != nil {
			t.Fatalf("re-parse failed: %v\n%s", err, data)
		}
		if len(back.Mocks) != len(f.Mocks) {
			t.Fatalf("expected %d mocks, got %d", len(f.Mocks), len(back.Mocks))
		}
		if back.Mocks[0].Response.Body != f.Mocks[0].Response.Body {
			t.Errorf("body changed: %q -> %q", f.Mocks[0].Response.Body, back.Mocks[0].Response.Body)
		}
	}

	if _, err := Marshal(nil, FormatYAML); err == nil {
		t.Error("expected error for nil fixture")
	}
}

func TestFixture_ProvidesToPool(t *testing.T) {
	f, err := Parse([]byte(collectionYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	pool, err := engine.Build(Providers([]*Fixture{f}))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if pool.Len() != 2 {
		t.Fatalf("pool has %d definitions", pool.Len())
	}
	if id := pool.Definitions()[1].ID; id != "users-2" {
		t.Errorf("generated ID = %q, want users-2", id)
	}

	req, err := mock.NewRequest("GET", "http://api.test/users/42")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := pool.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(resp.Body) != `{"id":"42"}` {
		t.Errorf("body = %s", resp.Body)
	}
}

func TestFixture_Name(t *testing.T) {
	tests := []struct {
		fixture Fixture
		want    string
	}{
		{Fixture{Title: "users"}, "users"},
		{Fixture{Path: "/tmp/fixtures/orders.yaml"}, "orders"},
		{Fixture{}, "fixture"},
	}
	for _, tt := range tests {
		if got := tt.fixture.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestFixtureSchema(t *testing.T) {
	if !strings.Contains(string(FixtureSchema()), "2020-12") {
		t.Error("schema should declare draft 2020-12")
	}
	if _, err := compiledFixtureSchema(); err != nil {
		t.Fatalf("embedded schema does not compile: %v", err)
	}
}
