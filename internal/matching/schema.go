package matching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const bodySchemaURL = "body-schema.json"

// compileBodySchema compiles an inline JSON Schema (Draft 2020-12).
func compileBodySchema(schema interface{}) (*jsonschema.Schema, error) {
	if s, ok := schema.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("invalid body schema: %w", err)
		}
		schema = decoded
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid body schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(bodySchemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("invalid body schema: %w", err)
	}
	compiled, err := compiler.Compile(bodySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid body schema: %w", err)
	}
	return compiled, nil
}

// schemaViolation returns the first leaf violation as "location: message".
func schemaViolation(err error) string {
	var vErr *jsonschema.ValidationError
	if !errors.As(err, &vErr) {
		return err.Error()
	}
	for len(vErr.Causes) > 0 {
		vErr = vErr.Causes[0]
	}
	loc := vErr.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + vErr.Message
}
