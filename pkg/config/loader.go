package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for fixture loading and saving.
var (
	ErrFileNotFound     = errors.New("fixture file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("fixture file is empty")
	ErrInvalidFixture   = errors.New("invalid fixture")
)

// Format is a fixture file encoding.
type Format int

// Formats.
const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFromPath picks the format from the file extension. Anything other
// than .json is read as YAML, which also accepts JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads and validates one fixture file.
func LoadFile(path string) (*Fixture, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Parse decodes fixture content. Environment references are expanded
// first, then the document is checked against the fixture schema and every
// definition is validated.
func Parse(data []byte, format Format) (*Fixture, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	expanded := []byte(ExpandEnvVars(string(data)))

	var (
		doc interface{}
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = decodeJSON(expanded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	default:
		var raw interface{}
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		// Round-trip through JSON so the schema sees JSON types.
		asJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		if doc, err = decodeJSON(asJSON); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	}

	doc, err = normalize(doc)
	if err != nil {
		return nil, err
	}
	if result := validateSchema(doc); !result.IsValid() {
		return nil, result.Err()
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	var f Fixture
	if err := json.Unmarshal(canonical, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := ValidateFixture(&f).Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

// normalize rewrites a bare list or a single definition into the
// collection shape.
func normalize(doc interface{}) (interface{}, error) {
	switch v := doc.(type) {
	case nil:
		return nil, ErrEmptyFile
	case []interface{}:
		return map[string]interface{}{"mocks": v}, nil
	case map[string]interface{}:
		if _, ok := v["mocks"]; ok {
			return v, nil
		}
		return map[string]interface{}{"mocks": []interface{}{v}}, nil
	default:
		return nil, fmt.Errorf("%w: top level must be a mapping or a list, got %T", ErrInvalidFixture, doc)
	}
}

// Marshal encodes a fixture in the given format.
func Marshal(f *Fixture, format Format) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fixture cannot be nil")
	}
	if format == FormatJSON {
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveFile writes a fixture using atomic rename. The format follows the
// file extension. Parent directories are created as needed.
func SaveFile(path string, f *Fixture) error {
	data, err := Marshal(f, FormatFromPath(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars expands ${VAR_NAME} and ${VAR_NAME:-default}. An unset or
// empty variable without a default expands to "".
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val := os.Getenv(submatch[1]); val != "" {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}

// ResolvePath resolves a potentially relative path against a base directory.
// A leading ~/ refers to the home directory.
func ResolvePath(basePath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(basePath, targetPath)
}
