package portability

import (
	"math"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// exampleGenerator derives a deterministic example value from a schema.
// It follows this priority chain:
//  1. Explicit example value on the schema
//  2. First enum value
//  3. Default value
//  4. Composition (allOf merged, oneOf/anyOf first variant)
//  5. Type-specific value honouring format and bounds
type exampleGenerator struct {
	visiting map[*openapi3.Schema]bool // cycle detection across $refs
}

func newExampleGenerator() *exampleGenerator {
	return &exampleGenerator{visiting: make(map[*openapi3.Schema]bool)}
}

func (g *exampleGenerator) generate(schema *openapi3.Schema, propertyName string) interface{} {
	if schema == nil {
		return nil
	}
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}
	if schema.Default != nil {
		return schema.Default
	}

	if g.visiting[schema] {
		return nil
	}
	g.visiting[schema] = true
	defer delete(g.visiting, schema)

	if len(schema.AllOf) > 0 {
		return g.generateAllOf(schema)
	}
	if len(schema.OneOf) > 0 {
		return g.generate(schema.OneOf[0].Value, propertyName)
	}
	if len(schema.AnyOf) > 0 {
		return g.generate(schema.AnyOf[0].Value, propertyName)
	}

	switch schemaType(schema) {
	case openapi3.TypeObject:
		return g.generateObject(schema)
	case openapi3.TypeArray:
		return g.generateArray(schema)
	case openapi3.TypeString:
		return generateString(schema, propertyName)
	case openapi3.TypeInteger:
		return int64(generateNumber(schema, 1, true))
	case openapi3.TypeNumber:
		return generateNumber(schema, 1.5, false)
	case openapi3.TypeBoolean:
		return true
	default:
		if len(schema.Properties) > 0 {
			return g.generateObject(schema)
		}
		return nil
	}
}

// schemaType returns the first non-null type.
func schemaType(schema *openapi3.Schema) string {
	if schema.Type == nil {
		return ""
	}
	for _, t := range *schema.Type {
		if t != "null" {
			return t
		}
	}
	return ""
}

func (g *exampleGenerator) generateObject(schema *openapi3.Schema) interface{} {
	obj := make(map[string]interface{}, len(schema.Properties))
	for name, prop := range schema.Properties {
		if prop == nil || prop.Value == nil || prop.Value.WriteOnly {
			continue
		}
		if v := g.generate(prop.Value, name); v != nil {
			obj[name] = v
		}
	}
	return obj
}

func (g *exampleGenerator) generateAllOf(schema *openapi3.Schema) interface{} {
	merged := make(map[string]interface{})
	for _, part := range schema.AllOf {
		if part == nil {
			continue
		}
		v, ok := g.generate(part.Value, "").(map[string]interface{})
		if !ok {
			continue
		}
		for k, val := range v {
			merged[k] = val
		}
	}
	return merged
}

func (g *exampleGenerator) generateArray(schema *openapi3.Schema) interface{} {
	n := int(schema.MinItems)
	if n == 0 {
		n = 1
	}
	if schema.MaxItems != nil && uint64(n) > *schema.MaxItems {
		n = int(*schema.MaxItems)
	}
	items := make([]interface{}, 0, n)
	if schema.Items == nil {
		return items
	}
	for range n {
		v := g.generate(schema.Items.Value, "")
		if v == nil {
			break
		}
		items = append(items, v)
	}
	return items
}

func generateNumber(schema *openapi3.Schema, fallback float64, integer bool) float64 {
	v := fallback
	if schema.Min != nil {
		v = *schema.Min
		if integer {
			v = math.Ceil(v)
		}
	} else if schema.Max != nil && *schema.Max < v {
		v = *schema.Max
		if integer {
			v = math.Floor(v)
		}
	}
	return v
}

func generateString(schema *openapi3.Schema, propertyName string) string {
	s := stringByFormat(schema.Format, propertyName)
	if s == "" {
		s = stringByFieldName(propertyName)
	}
	if n := int(schema.MinLength); len(s) < n {
		s += strings.Repeat("x", n-len(s))
	}
	if schema.MaxLength != nil && uint64(len(s)) > *schema.MaxLength {
		s = s[:*schema.MaxLength]
	}
	return s
}

// stringByFormat maps OpenAPI formats to fixed values. UUIDs are derived
// from the property name so they stay stable between imports.
func stringByFormat(format, propertyName string) string {
	switch format {
	case "email":
		return "user@example.com"
	case "uuid":
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(propertyName)).String()
	case "uri", "url":
		return "https://example.com/resource"
	case "hostname":
		return "api.example.com"
	case "ipv4":
		return "192.0.2.1"
	case "ipv6":
		return "2001:db8::1"
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "date":
		return "2024-01-01"
	case "time":
		return "00:00:00Z"
	case "password":
		return "secret"
	case "byte":
		return "ZXhhbXBsZQ=="
	default:
		return ""
	}
}

// stringByFieldName maps common property names to plausible values.
func stringByFieldName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "":
		return "string"
	case strings.HasSuffix(lower, "email"):
		return "user@example.com"
	case lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "id"):
		return "1"
	case strings.HasSuffix(lower, "url") || strings.HasSuffix(lower, "uri"):
		return "https://example.com/resource"
	case strings.Contains(lower, "phone"):
		return "+1-555-0100"
	case lower == "status" || lower == "state":
		return "active"
	default:
		return name
	}
}
