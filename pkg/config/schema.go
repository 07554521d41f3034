package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/fixture.schema.json
var fixtureSchemaJSON []byte

const fixtureSchemaURL = "fixture.schema.json"

var (
	fixtureSchemaOnce sync.Once
	fixtureSchema     *jsonschema.Schema
	fixtureSchemaErr  error
)

// FixtureSchema returns the JSON Schema fixture files are checked against.
func FixtureSchema() []byte {
	return bytes.Clone(fixtureSchemaJSON)
}

func compiledFixtureSchema() (*jsonschema.Schema, error) {
	fixtureSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(fixtureSchemaURL, bytes.NewReader(fixtureSchemaJSON)); err != nil {
			fixtureSchemaErr = fmt.Errorf("loading fixture schema: %w", err)
			return
		}
		fixtureSchema, fixtureSchemaErr = compiler.Compile(fixtureSchemaURL)
	})
	return fixtureSchema, fixtureSchemaErr
}

// SchemaValidationError is one problem found in a fixture.
type SchemaValidationError struct {
	Path    string // e.g. "/mocks/0/matcher/method"
	Message string
}

func (e SchemaValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// SchemaValidationResult collects every problem found in a fixture.
type SchemaValidationResult struct {
	Errors []SchemaValidationError
}

// IsValid returns true if there are no validation errors.
func (r *SchemaValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *SchemaValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *SchemaValidationResult) AddError(path, message string) {
	r.Errors = append(r.Errors, SchemaValidationError{Path: path, Message: message})
}

// Err returns r as an error wrapping ErrInvalidFixture, or nil when valid.
func (r *SchemaValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return &InvalidFixtureError{Result: r}
}

// InvalidFixtureError reports a fixture that failed validation.
type InvalidFixtureError struct {
	Result *SchemaValidationResult
}

func (e *InvalidFixtureError) Error() string {
	return fmt.Sprintf("%s:\n%s", ErrInvalidFixture, e.Result.Error())
}

func (e *InvalidFixtureError) Is(target error) bool { return target == ErrInvalidFixture }

// validateSchema checks a decoded document against the fixture schema.
// Values must be JSON-shaped: maps with string keys, slices, strings,
// booleans, json.Number or float64.
func validateSchema(doc interface{}) *SchemaValidationResult {
	result := &SchemaValidationResult{}
	schema, err := compiledFixtureSchema()
	if err != nil {
		result.AddError("", err.Error())
		return result
	}

	err = schema.Validate(doc)
	if err == nil {
		return result
	}
	var vErr *jsonschema.ValidationError
	if !errors.As(err, &vErr) {
		result.AddError("", err.Error())
		return result
	}
	for _, leaf := range leafCauses(vErr) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		result.AddError(loc, leaf.Message)
	}
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Path < result.Errors[j].Path
	})
	return result
}

func leafCauses(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}
