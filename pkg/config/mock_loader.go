package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LoadResult holds the fixtures read by Load and the files that failed.
type LoadResult struct {
	// Fixtures are in argument order, and in lexical path order within a
	// glob or directory.
	Fixtures []*Fixture

	// Errors has one entry per file that could not be loaded.
	Errors []*LoadError
}

// Err joins the per-file errors, or returns nil.
func (r *LoadResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// LoadError represents an error loading a specific file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads fixtures from files, directories and glob patterns, each
// resolved against baseDir. Directories are walked recursively for .yaml,
// .yml and .json files. A file that fails to load is recorded in the
// result and loading continues; the returned error is for arguments that
// cannot be expanded at all.
func Load(baseDir string, patterns ...string) (*LoadResult, error) {
	result := &LoadResult{}
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		files, err := expand(ResolvePath(baseDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pattern, err)
		}
		for _, file := range files {
			if seen[file] {
				continue
			}
			seen[file] = true

			f, err := LoadFile(file)
			if err != nil {
				result.Errors = append(result.Errors, &LoadError{Path: file, Err: err})
				continue
			}
			result.Fixtures = append(result.Fixtures, f)
		}
	}
	return result, nil
}

// expand turns one argument into the files it names.
func expand(path string) ([]string, error) {
	if hasGlobMeta(path) {
		matches, err := expandGlob(path)
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern: %w", err)
		}
		sort.Strings(matches)
		var files []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
		return files, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		// LoadFile reports the missing file with the right sentinel.
		return []string{path}, nil //nolint:nilerr
	}
	if info.IsDir() {
		return findFixtureFiles(path)
	}
	return []string{path}, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// expandGlob expands a glob pattern to a list of matching file paths.
// Uses doublestar for ** support, falls back to filepath.Glob for simple patterns.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") || strings.Contains(pattern, "{") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// findFixtureFiles finds all .yaml, .yml, and .json files under dir.
func findFixtureFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
