// Package template renders templated mock responses.
// It supports variable substitution like {{now}}, {{uuid}}, {{request.body.field}}.
//
// # Built-in Variables
//
// Time-related:
//   - {{now}} - Current time in RFC3339 format
//   - {{timestamp}} - Current Unix timestamp
//   - {{timestamp.iso}}, {{timestamp.unix_ms}}
//
// Random values:
//   - {{uuid}} - Random UUID v4
//   - {{uuid.short}} - First 8 characters of a UUID
//   - {{random.string}} / {{random.string(N)}} - Random alphanumeric string
//   - {{random.int}} / {{random.int(min, max)}} - Random integer
//
// # Request Variables
//
// Access the intercepted request with the {{request.*}} prefix:
//   - {{request.method}}, {{request.path}}, {{request.host}}, {{request.url}}
//   - {{request.rawBody}} - Raw request body
//   - {{request.body.field}} - JSON body field, dot separated ("items.0.id")
//   - {{request.query.param}} - First value of a query parameter
//   - {{request.header.name}} - First value of a header
//   - {{request.pathParam.name}} - {name} or * segment of the matched path
//   - {{request.pathPattern.name}} - Named capture of a path regex
//   - {{request.jsonPath.key}} - Value selected by a JSONPath condition
//
// # Functions
//
//   - {{upper(value)}} or {{upper value}}
//   - {{lower(value)}} or {{lower value}}
//   - {{default(value, "fallback")}} or {{default value "fallback"}}
//   - {{sequence("name")}} / {{sequence("name", start)}} - Counter scoped to the Engine
//
// Unknown expressions render as the empty string.
package template
