package matching

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// jsonPathCondition is one compiled bodyJsonPath entry.
type jsonPathCondition struct {
	path string
	// key names the selected value in Result.JSONPath.
	key      string
	expr     jp.Expr
	expected interface{}
	// exists is set for {"exists": bool} expectations.
	exists *bool
}

func compileJSONPath(conditions map[string]interface{}) ([]jsonPathCondition, error) {
	out := make([]jsonPathCondition, 0, len(conditions))
	for _, path := range sortedKeys(conditions) {
		x, err := jp.ParseString(path)
		if err != nil {
			return nil, fmt.Errorf("invalid JSONPath expression %q: %w", path, err)
		}
		c := jsonPathCondition{path: path, key: jsonPathKey(path), expr: x, expected: conditions[path]}
		if m, ok := c.expected.(map[string]interface{}); ok && len(m) == 1 {
			if b, ok := m["exists"].(bool); ok {
				c.exists = &b
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// eval selects the condition's values in data. It reports whether the
// condition holds and the value that decided it: the matching element for
// wildcard paths, else the first one selected.
func (c *jsonPathCondition) eval(data interface{}) (bool, interface{}) {
	found := c.expr.Get(data)
	var first interface{}
	if len(found) > 0 {
		first = found[0]
	}
	if c.exists != nil {
		return *c.exists == (len(found) > 0), first
	}
	for _, v := range found {
		if valuesEqual(v, c.expected) {
			return true, v
		}
	}
	return false, first
}

func (m *Matcher) checkJSONPath(ev *evaluation) {
	for i := range m.jsonPaths {
		c := &m.jsonPaths[i]
		f := FieldResult{Field: "jsonPath " + c.path, MaxScore: ScoreJSONPathCondition, Expected: c.expected}
		data, ok := ev.json()
		if !ok {
			f.Reason = "body is not valid JSON"
			ev.add(f)
			if ev.done() {
				return
			}
			continue
		}

		matched, value := c.eval(data)
		f.Matched, f.Actual = matched, value
		switch {
		case matched:
			f.Score = ScoreJSONPathCondition
			if value != nil {
				if ev.jsonPath == nil {
					ev.jsonPath = make(map[string]interface{})
				}
				ev.jsonPath[c.key] = value
			}
		case value == nil:
			f.Reason = fmt.Sprintf("jsonPath %s not found", c.path)
		default:
			f.Reason = fmt.Sprintf("jsonPath %s expected %s, got %s", c.path, jsonText(c.expected), jsonText(value))
		}
		ev.add(f)
		if ev.done() {
			return
		}
	}
}

// jsonPathKey turns a JSONPath expression into a template-friendly key:
// "$.items[0].id" becomes "items_0_id".
func jsonPathKey(path string) string {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return strings.ContainsRune(".[]*@?(), ", r)
	})
	return strings.Join(parts, "_")
}
