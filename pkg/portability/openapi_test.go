package portability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
)

func loadPetstore(t *testing.T, opts ImportOptions) *OpenAPIProvider {
	t.Helper()
	p, err := LoadOpenAPI(filepath.Join("testdata", "petstore.yaml"), opts)
	require.NoError(t, err)
	return p
}

func TestLoadOpenAPI_Operations(t *testing.T) {
	p := loadPetstore(t, ImportOptions{})
	assert.Equal(t, "pet-store", p.Name())
	assert.Equal(t, "Pet Store", p.Document().Info.Title)

	defs := p.Supply()
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"listPets", "createPet", "getPet", "deletePet", "getPhoto"}, ids)

	list := defs[0]
	assert.Equal(t, "List pets", list.Name)
	assert.Equal(t, "GET", list.Matcher.Method)
	assert.Equal(t, "/v1/pets", list.Matcher.Path)
	assert.Empty(t, list.Matcher.Host)
	assert.Nil(t, list.Matcher.QueryParams)
	assert.Equal(t, 200, list.Response.StatusCode)
	assert.Equal(t, "application/json", list.Response.Headers["Content-Type"])
	assert.Equal(t, "2", list.Response.Headers["X-Total"])
	assert.JSONEq(t,
		`[{"id":1,"name":"name","tag":"dog","owner":{"email":"user@example.com","pets":[]}}]`,
		list.Response.Body)

	create := defs[1]
	assert.Equal(t, "POST /v1/pets", create.Name)
	assert.Equal(t, 201, create.Response.StatusCode)
	assert.JSONEq(t, `{"id":7,"name":"Rex"}`, create.Response.Body)

	get := defs[2]
	assert.Equal(t, "/v1/pets/{petId}", get.Matcher.Path)
	assert.Equal(t, 200, get.Response.StatusCode, "success preferred over 404")
	assert.JSONEq(t, `{"id":1,"name":"First"}`, get.Response.Body, "examples taken in key order")

	del := defs[3]
	assert.Equal(t, 204, del.Response.StatusCode)
	assert.Empty(t, del.Response.Body)
	assert.Nil(t, del.Response.Headers)

	photo := defs[4]
	assert.Empty(t, photo.Matcher.Path)
	assert.Equal(t, `^/v1/pets/(?P<petId>[^/]+)/photo\.(?P<format>[^/]+)$`, photo.Matcher.PathPattern)
	assert.Equal(t, 200, photo.Response.StatusCode)
	assert.Equal(t, "text/plain", photo.Response.Headers["Content-Type"])
	assert.Equal(t, "not really a photo", photo.Response.Body)

	for _, d := range defs {
		assert.NoError(t, d.Validate(), d.ID)
	}
}

func TestLoadOpenAPI_Options(t *testing.T) {
	p := loadPetstore(t, ImportOptions{
		Name:          "pets",
		Times:         1,
		MatchHost:     true,
		QueryExamples: true,
		Status:        404,
	})
	assert.Equal(t, "pets", p.Name())

	defs := p.Supply()
	list := defs[0]
	assert.Equal(t, "api.pets.test", list.Matcher.Host)
	assert.Equal(t, map[string]string{"limit": "10"}, list.Matcher.QueryParams)
	assert.Equal(t, 1, list.Times)

	get := defs[2]
	assert.Equal(t, 404, get.Response.StatusCode)
	assert.JSONEq(t, `{"error":"Not Found"}`, get.Response.Body)
}

func TestOpenAPIProvider_SupplyReturnsCopies(t *testing.T) {
	p := loadPetstore(t, ImportOptions{})
	first := p.Supply()
	first[0].Matcher.Path = "/changed"
	assert.Equal(t, "/v1/pets", p.Supply()[0].Matcher.Path)
}

func TestOpenAPIProvider_SeedsPool(t *testing.T) {
	p := loadPetstore(t, ImportOptions{})
	pool, err := engine.Build([]mock.Provider{p})
	require.NoError(t, err)

	req, err := mock.NewRequest("GET", "https://api.pets.test/v1/pets/42")
	require.NoError(t, err)
	resp, err := pool.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"name":"First"}`, string(resp.Body))

	req, err = mock.NewRequest("GET", "https://api.pets.test/v1/pets/42/photo.png")
	require.NoError(t, err)
	resp, err = pool.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "not really a photo", string(resp.Body))
}

func TestOpenAPIProvider_Fixture(t *testing.T) {
	p := loadPetstore(t, ImportOptions{})
	f := p.Fixture()
	assert.Equal(t, config.CurrentVersion, f.Version)
	assert.Equal(t, "pet-store", f.Title)

	data, err := config.Marshal(f, config.FormatYAML)
	require.NoError(t, err)
	back, err := config.Parse(data, config.FormatYAML)
	require.NoError(t, err, string(data))
	assert.Len(t, back.Mocks, 5)
	assert.Equal(t, f.Mocks[4].Matcher.PathPattern, back.Mocks[4].Matcher.PathPattern)
}

func TestParseOpenAPI_Swagger(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "swagger.json"))
	require.NoError(t, err)

	p, err := ParseOpenAPI(data, ImportOptions{MatchHost: true})
	require.NoError(t, err)
	assert.Equal(t, "legacy-users", p.Name())

	defs := p.Supply()
	require.Len(t, defs, 1)
	assert.Equal(t, "listUsers", defs[0].ID)
	assert.Equal(t, "/api/users", defs[0].Matcher.Path)
	assert.Equal(t, "legacy.test", defs[0].Matcher.Host)
	assert.Contains(t, defs[0].Response.Body, `"active":true`)
}

func TestParseOpenAPI_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{name: "not yaml", data: "openapi: [\n"},
		{name: "unknown document", data: "title: nothing\n", is: ErrUnsupportedDocument},
		{name: "invalid document", data: "openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths:\n  users: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOpenAPI([]byte(tt.data), ImportOptions{})
			require.Error(t, err)
			var ie *ImportError
			assert.True(t, errors.As(err, &ie))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	_, err := LoadOpenAPI(filepath.Join("testdata", "missing.yaml"), ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestFindBestResponse(t *testing.T) {
	resp := func(desc string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(desc)}
	}
	tests := []struct {
		name      string
		codes     []string
		preferred int
		want      int
		wantDesc  string
	}{
		{"empty", nil, 0, 200, ""},
		{"200 first", []string{"404", "201", "200"}, 0, 200, "200"},
		{"lowest other success", []string{"500", "206", "203"}, 0, 203, "203"},
		{"range", []string{"2XX", "404"}, 0, 200, "2XX"},
		{"default", []string{"default", "404"}, 0, 200, "default"},
		{"only errors", []string{"500", "404"}, 0, 404, "404"},
		{"preferred", []string{"200", "409"}, 409, 409, "409"},
		{"preferred missing", []string{"200"}, 409, 200, "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := openapi3.NewResponsesWithCapacity(len(tt.codes))
			for _, c := range tt.codes {
				responses.Set(c, resp(c))
			}
			code, r := findBestResponse(responses, tt.preferred)
			assert.Equal(t, tt.want, code)
			if tt.wantDesc == "" {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, tt.wantDesc, *r.Description)
		})
	}
}

func TestPathMatcher(t *testing.T) {
	tests := []struct {
		path, literal, pattern string
	}{
		{"/users", "/users", ""},
		{"/users/{id}", "/users/{id}", ""},
		{"/a/{b}/c/{d}", "/a/{b}/c/{d}", ""},
		{"/files/{name}.json", "", `^/files/(?P<name>[^/]+)\.json$`},
		{"/r/{a-b}x", "", `^/r/(?P<a_b>[^/]+)x$`},
	}
	for _, tt := range tests {
		literal, pattern := pathMatcher(tt.path)
		assert.Equal(t, tt.literal, literal, tt.path)
		assert.Equal(t, tt.pattern, pattern, tt.path)
	}
}

func TestExampleGenerator(t *testing.T) {
	g := newExampleGenerator()
	str := openapi3.NewStringSchema()
	assert.Equal(t, "string", g.generate(str, ""))
	assert.Equal(t, "user@example.com", g.generate(openapi3.NewStringSchema().WithFormat("email"), "contact"))
	assert.Equal(t, "xxxxx", g.generate(openapi3.NewStringSchema().WithMinLength(5).WithFormat("x"), "x"))

	assert.Equal(t, int64(5), g.generate(openapi3.NewIntegerSchema().WithMin(5), ""))
	assert.Equal(t, int64(-3), g.generate(openapi3.NewIntegerSchema().WithMax(-3), ""))
	assert.Equal(t, 1.5, g.generate(openapi3.NewFloat64Schema(), ""))
	assert.Equal(t, true, g.generate(openapi3.NewBoolSchema(), ""))
	assert.Equal(t, "b", g.generate(openapi3.NewStringSchema().WithEnum("b", "a"), ""))

	id1 := g.generate(openapi3.NewUUIDSchema(), "id")
	id2 := newExampleGenerator().generate(openapi3.NewUUIDSchema(), "id")
	assert.Equal(t, id1, id2, "uuids are stable")

	composed := &openapi3.Schema{AllOf: openapi3.SchemaRefs{
		openapi3.NewSchemaRef("", openapi3.NewObjectSchema().WithProperty("a", openapi3.NewBoolSchema())),
		openapi3.NewSchemaRef("", openapi3.NewObjectSchema().WithProperty("b", openapi3.NewInt64Schema())),
	}}
	assert.Equal(t, map[string]interface{}{"a": true, "b": int64(1)}, g.generate(composed, ""))

	arr := openapi3.NewArraySchema().WithItems(openapi3.NewBoolSchema()).WithMinItems(2)
	assert.Equal(t, []interface{}{true, true}, g.generate(arr, ""))

	assert.Nil(t, g.generate(nil, ""))
	assert.Nil(t, g.generate(&openapi3.Schema{}, ""))
}
