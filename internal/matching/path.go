package matching

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
)

// foldCase folds a path for case-insensitive comparison. cases.Caser is
// not safe for concurrent use, so a fresh one is built per call.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam               // {name}: exactly one segment
	segGlob                // a segment with * inside, e.g. *.json
	segWildcard            // a bare *: one segment, or the rest when last
)

type pathSegment struct {
	kind   segmentKind
	text   string // literal text, parameter name or glob
	folded string
}

// pathTemplate is a compiled matcher path. It accepts literal paths,
// {name} segments and * wildcards.
type pathTemplate struct {
	raw      string
	segments []pathSegment
	score    int
}

func compilePath(raw string) *pathTemplate {
	t := &pathTemplate{raw: raw, score: ScorePathExact}
	for _, part := range splitPath(raw) {
		seg := pathSegment{kind: segLiteral, text: part}
		switch {
		case part == "*":
			seg.kind = segWildcard
		case len(part) > 2 && part[0] == '{' && part[len(part)-1] == '}':
			seg.kind = segParam
			seg.text = part[1 : len(part)-1]
		case strings.Contains(part, "*"):
			seg.kind = segGlob
		}
		if seg.kind != segParam {
			seg.folded = foldCase(seg.text)
		}
		t.segments = append(t.segments, seg)
	}

	for _, seg := range t.segments {
		switch seg.kind {
		case segWildcard, segGlob:
			t.score = ScorePathWildcard
		case segParam:
			if t.score == ScorePathExact {
				t.score = ScorePathNamedParams
			}
		}
	}
	return t
}

// match returns the score of path against the template, or 0, and the
// captured parameters. Bare wildcards are captured under "0", "1" and so
// on; a trailing one captures the rest of the path, possibly empty.
func (t *pathTemplate) match(path string, caseSensitive bool) (int, map[string]string) {
	if t.score == ScorePathExact {
		if path == t.raw || (!caseSensitive && foldCase(path) == foldCase(t.raw)) {
			return ScorePathExact, nil
		}
		return 0, nil
	}

	parts := splitPath(path)
	params := make(map[string]string)
	wildcards := 0
	for i, seg := range t.segments {
		last := i == len(t.segments)-1
		if seg.kind == segWildcard && last {
			params[strconv.Itoa(wildcards)] = strings.Join(parts[min(i, len(parts)):], "/")
			return t.score, params
		}
		if i >= len(parts) {
			return 0, nil
		}
		part := parts[i]
		switch seg.kind {
		case segParam:
			params[seg.text] = part
		case segWildcard:
			params[strconv.Itoa(wildcards)] = part
			wildcards++
		case segGlob:
			if !globMatch(seg, part, caseSensitive) {
				return 0, nil
			}
		default:
			if part != seg.text && (caseSensitive || foldCase(part) != seg.folded) {
				return 0, nil
			}
		}
	}
	if len(parts) != len(t.segments) {
		return 0, nil
	}
	return t.score, params
}

func globMatch(seg pathSegment, part string, caseSensitive bool) bool {
	pattern := seg.text
	if !caseSensitive {
		pattern, part = seg.folded, foldCase(part)
	}
	ok, err := doublestar.Match(pattern, part)
	return err == nil && ok
}

// splitPath splits a path into segments, ignoring leading and trailing
// slashes. The root path has no segments.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// MatchPathPattern checks if the request path matches a compiled regex.
// Returns ScorePathPattern and the named capture groups on a match,
// or 0 and nil otherwise.
func MatchPathPattern(re *regexp.Regexp, path string) (score int, captures map[string]string) {
	if re == nil {
		return 0, nil
	}
	match := re.FindStringSubmatch(path)
	if match == nil {
		return 0, nil
	}
	captures = make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" && i < len(match) {
			captures[name] = match[i]
		}
	}
	return ScorePathPattern, captures
}

// compilePathPattern compiles a path regex, adding the (?i) flag when
// paths are compared case-insensitively.
func compilePathPattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive && !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}
