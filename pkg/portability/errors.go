package portability

import (
	"errors"
	"strings"
)

// ErrUnsupportedDocument is returned for documents that are neither
// OpenAPI 3.x nor Swagger 2.0.
var ErrUnsupportedDocument = errors.New("not an OpenAPI 3.x or Swagger 2.0 document")

// ImportError reports a document that could not be turned into mocks.
type ImportError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ImportError) Unwrap() error { return e.Cause }
