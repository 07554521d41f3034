package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// lookupRequest renders a request.* field; field excludes the prefix.
func lookupRequest(ctx *Context, field string) string {
	if ctx == nil {
		return ""
	}
	req := &ctx.Request
	head, key, keyed := strings.Cut(field, ".")
	if !keyed {
		switch head {
		case "method":
			return req.Method
		case "host":
			return req.Host
		case "path":
			return req.Path
		case "url":
			return req.URL
		case "rawBody":
			return req.RawBody
		}
		return ""
	}
	switch head {
	case "body":
		return bodyField(req.Body, key)
	case "query":
		if values := req.Query[key]; len(values) > 0 {
			return values[0]
		}
	case "header":
		return req.Headers.Get(key)
	case "pathParam":
		return req.PathParams[key]
	case "pathPattern":
		return req.PathPatternCaptures[key]
	case "jsonPath":
		if v, ok := req.JSONPath[key]; ok {
			return formatValue(v)
		}
	}
	return ""
}

// bodyField walks a decoded JSON body along a dot separated path where
// numeric segments index arrays, as in "items.0.id".
func bodyField(body interface{}, path string) string {
	cur := body
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]interface{}:
			next, ok := v[seg]
			if !ok {
				return ""
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return ""
			}
			cur = v[i]
		default:
			return ""
		}
	}
	return formatValue(cur)
}

// formatValue renders scalars plainly and objects or arrays as compact JSON.
func formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(val)
}
