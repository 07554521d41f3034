package config

import (
	"path/filepath"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// CurrentVersion is the fixture format version written by SaveFile.
const CurrentVersion = "1"

// Fixture is the content of one fixture file.
type Fixture struct {
	Version string             `json:"version,omitempty" yaml:"version,omitempty"`
	// Title is the "name" key of the file. It prefixes generated IDs.
	Title   string             `json:"name,omitempty" yaml:"name,omitempty"`
	Mocks   []*mock.Definition `json:"mocks" yaml:"mocks"`

	// Path is the file the fixture was read from, if any.
	Path string `json:"-" yaml:"-"`
}

var _ mock.Provider = (*Fixture)(nil)

// Name returns Title, falling back to the file name without its
// extension.
func (f *Fixture) Name() string {
	if f.Title != "" {
		return f.Title
	}
	if f.Path != "" {
		base := filepath.Base(f.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "fixture"
}

// Supply returns the fixture definitions in file order.
func (f *Fixture) Supply() []*mock.Definition {
	return f.Mocks
}

// Providers returns fixtures as providers, preserving order.
func Providers(fixtures []*Fixture) []mock.Provider {
	out := make([]mock.Provider, len(fixtures))
	for i, f := range fixtures {
		out[i] = f
	}
	return out
}
