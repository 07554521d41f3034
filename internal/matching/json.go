package matching

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	jd "github.com/josephburnett/jd/lib"
)

// jsonMismatch is one difference found by compareJSON.
type jsonMismatch struct {
	Path    string
	Message string
}

func (m jsonMismatch) String() string {
	return "json" + m.Path + ": " + m.Message
}

// compareJSON compares an expected JSON value against the decoded request
// body. expected must already be normalized with normalizeJSON. Objects in
// the request may carry extra keys unless exact is set.
// Arrays must have the same length and are compared element by element.
// Nothing below maxDepth is compared.
func compareJSON(expected, actual interface{}, maxDepth int, exact bool) []jsonMismatch {
	return compareJSONAt(1, maxDepth, exact, "", expected, actual)
}

func compareJSONAt(depth, maxDepth int, exact bool, path string, expected, actual interface{}) []jsonMismatch {
	if depth > maxDepth {
		return nil
	}

	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return []jsonMismatch{typeMismatch(path, expected, actual)}
		}
		var out []jsonMismatch
		for _, key := range sortedKeys(exp) {
			child := path + "." + key
			av, found := act[key]
			if !found {
				out = append(out, jsonMismatch{Path: child, Message: "missing"})
				continue
			}
			out = append(out, compareJSONAt(depth+1, maxDepth, exact, child, exp[key], av)...)
		}
		if exact {
			for _, key := range sortedKeys(act) {
				if _, declared := exp[key]; !declared {
					out = append(out, jsonMismatch{Path: path + "." + key, Message: "unexpected key"})
				}
			}
		}
		return out

	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return []jsonMismatch{typeMismatch(path, expected, actual)}
		}
		if len(exp) != len(act) {
			return []jsonMismatch{{
				Path:    path,
				Message: fmt.Sprintf("array length expected %d, got %d", len(exp), len(act)),
			}}
		}
		var out []jsonMismatch
		for i := range exp {
			out = append(out, compareJSONAt(depth+1, maxDepth, exact, fmt.Sprintf("%s[%d]", path, i), exp[i], act[i])...)
		}
		return out

	default:
		if jsonType(expected) != jsonType(actual) {
			return []jsonMismatch{typeMismatch(path, expected, actual)}
		}
		if !valuesEqual(actual, expected) {
			return []jsonMismatch{{
				Path:    path,
				Message: fmt.Sprintf("expected %s, got %s", jsonText(expected), jsonText(actual)),
			}}
		}
		return nil
	}
}

func typeMismatch(path string, expected, actual interface{}) jsonMismatch {
	return jsonMismatch{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %s %s", jsonType(expected), jsonType(actual), jsonText(actual)),
	}
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		if _, ok := toFloat64(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

func jsonText(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return truncate(string(b), 80)
}

// normalizeJSON round-trips v through encoding/json so Go structs, typed
// maps and ints compare like decoded JSON. A string holding JSON text is
// decoded.
func normalizeJSON(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		var out interface{}
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// renderJSONDiff renders a structural diff between expected and actual
// JSON documents. Returns "" when either side cannot be read.
func renderJSONDiff(expected interface{}, actual []byte) string {
	exp, err := json.Marshal(expected)
	if err != nil {
		return ""
	}
	a, err := jd.ReadJsonString(string(exp))
	if err != nil {
		return ""
	}
	b, err := jd.ReadJsonString(string(actual))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(a.Diff(b).Render())
}

// valuesEqual compares decoded JSON values. Numbers of any Go type
// compare by value; everything else must be deeply equal.
func valuesEqual(actual, expected interface{}) bool {
	an, aNum := toFloat64(actual)
	en, eNum := toFloat64(expected)
	if aNum || eNum {
		return aNum && eNum && an == en
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat64(v interface{}) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
