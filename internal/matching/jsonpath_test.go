package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mock"
)

func jsonPathMatch(t *testing.T, conditions map[string]interface{}, body string) Result {
	t.Helper()
	m := mustCompile(t, &mock.HTTPMatcher{BodyJSONPath: conditions})
	return m.Match(newRequest(t, "POST", "http://api.example.com/items", body), Options{})
}

func TestJSONPath_SimpleFieldMatching(t *testing.T) {
	tests := []struct {
		name       string
		conditions map[string]interface{}
		body       string
		wantMatch  bool
	}{
		{"string match", map[string]interface{}{"$.status": "active"}, `{"status": "active"}`, true},
		{"string mismatch", map[string]interface{}{"$.status": "active"}, `{"status": "inactive"}`, false},
		{"number match", map[string]interface{}{"$.count": float64(42)}, `{"count": 42}`, true},
		{"int expected against float actual", map[string]interface{}{"$.count": 42}, `{"count": 42}`, true},
		{"number mismatch", map[string]interface{}{"$.count": float64(42)}, `{"count": 43}`, false},
		{"boolean true", map[string]interface{}{"$.enabled": true}, `{"enabled": true}`, true},
		{"boolean false", map[string]interface{}{"$.enabled": false}, `{"enabled": false}`, true},
		{"null match", map[string]interface{}{"$.deleted": nil}, `{"deleted": null}`, true},
		{"nested field", map[string]interface{}{"$.user.address.city": "Oslo"}, `{"user": {"address": {"city": "Oslo"}}}`, true},
		{"array index", map[string]interface{}{"$.items[1].id": "b"}, `{"items": [{"id": "a"}, {"id": "b"}]}`, true},
		{"wildcard any element", map[string]interface{}{"$.items[*].id": "b"}, `{"items": [{"id": "a"}, {"id": "b"}]}`, true},
		{"wildcard no element", map[string]interface{}{"$.items[*].id": "z"}, `{"items": [{"id": "a"}]}`, false},
		{"missing field", map[string]interface{}{"$.missing": "x"}, `{"status": "active"}`, false},
		{"string vs number", map[string]interface{}{"$.count": "42"}, `{"count": 42}`, false},
		{"invalid json body", map[string]interface{}{"$.status": "active"}, `not json`, false},
		{"empty body", map[string]interface{}{"$.status": "active"}, ``, false},
		{
			"all conditions must hold",
			map[string]interface{}{"$.status": "active", "$.count": float64(1)},
			`{"status": "active", "count": 2}`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := jsonPathMatch(t, tt.conditions, tt.body)
			assert.Equal(t, tt.wantMatch, res.Matched)
			if tt.wantMatch {
				assert.Equal(t, ScoreJSONPathCondition*len(tt.conditions), res.Score)
			}
		})
	}
}

func TestJSONPath_ExistenceChecks(t *testing.T) {
	exists := map[string]interface{}{"exists": true}
	absent := map[string]interface{}{"exists": false}

	assert.True(t, jsonPathMatch(t, map[string]interface{}{"$.token": exists}, `{"token": "abc"}`).Matched)
	assert.False(t, jsonPathMatch(t, map[string]interface{}{"$.token": exists}, `{}`).Matched)
	assert.True(t, jsonPathMatch(t, map[string]interface{}{"$.token": absent}, `{}`).Matched)
	assert.False(t, jsonPathMatch(t, map[string]interface{}{"$.token": absent}, `{"token": "abc"}`).Matched)
}

func TestJSONPath_CapturedValues(t *testing.T) {
	res := jsonPathMatch(t, map[string]interface{}{
		"$.status":      "active",
		"$.user.name":   "John",
		"$.items[0].id": float64(123),
	}, `{"status": "active", "user": {"name": "John"}, "items": [{"id": 123}]}`)

	require.True(t, res.Matched)
	assert.Equal(t, map[string]interface{}{
		"status":     "active",
		"user_name":  "John",
		"items_0_id": float64(123),
	}, res.JSONPath)
}

func TestJSONPath_NoCaptureOnMismatch(t *testing.T) {
	res := jsonPathMatch(t, map[string]interface{}{"$.status": "active"}, `{"status": "inactive"}`)
	assert.False(t, res.Matched)
	assert.Empty(t, res.JSONPath)
}

func TestJSONPath_MismatchReason(t *testing.T) {
	m := mustCompile(t, &mock.HTTPMatcher{BodyJSONPath: map[string]interface{}{
		"$.status": "active",
		"$.zzz":    "x",
	}})
	fields := m.Evaluate(newRequest(t, "POST", "http://api.example.com/", `{"status": "inactive"}`), Options{})

	require.Len(t, fields, 2)
	assert.Equal(t, "jsonPath $.status", fields[0].Field)
	assert.Equal(t, `jsonPath $.status expected "active", got "inactive"`, fields[0].Reason)
	assert.Equal(t, "jsonPath $.zzz not found", fields[1].Reason)
}

func TestCompileJSONPath_Invalid(t *testing.T) {
	_, err := Compile(&mock.HTTPMatcher{BodyJSONPath: map[string]interface{}{"$[invalid": 1}})
	require.Error(t, err)

	var verr *mock.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "matcher.bodyJsonPath", verr.Field)
}

func TestCompileJSONPath_SortedConditions(t *testing.T) {
	conds, err := compileJSONPath(map[string]interface{}{"$.b": 1, "$.a": 2, "$.c": 3})
	require.NoError(t, err)
	require.Len(t, conds, 3)
	assert.Equal(t, "$.a", conds[0].path)
	assert.Equal(t, "$.b", conds[1].path)
	assert.Equal(t, "$.c", conds[2].path)
	assert.Equal(t, "a", conds[0].key)
	assert.Nil(t, conds[0].exists)

	conds, err = compileJSONPath(map[string]interface{}{"$.t": map[string]interface{}{"exists": false}})
	require.NoError(t, err)
	require.NotNil(t, conds[0].exists)
	assert.False(t, *conds[0].exists)
}

func TestJSONPathKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"$.status", "status"},
		{"$.user.name", "user_name"},
		{"$.items[0].id", "items_0_id"},
		{"$.items[*].type", "items_type"},
		{"$.data.user.address.city", "data_user_address_city"},
		{"$", ""},
		{"$.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonPathKey(tt.input))
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, "x"))
	assert.True(t, valuesEqual(float64(3), 3))
	assert.True(t, valuesEqual(float64(3), int64(3)))
	assert.False(t, valuesEqual("3", 3))
	assert.True(t, valuesEqual(true, true))
	assert.False(t, valuesEqual(true, false))
	assert.True(t, valuesEqual([]interface{}{"a"}, []interface{}{"a"}))
	assert.True(t, valuesEqual(json.Number("2.5"), 2.5))
	assert.False(t, valuesEqual(uint8(1), "1"))
}
