package matching

import (
	"bytes"
	"fmt"
	"regexp"
)

// checkBody evaluates the raw body conditions: exact text, substring and
// regular expression, in that order.
func (m *Matcher) checkBody(ev *evaluation) {
	body := ev.req.Body
	actual := truncate(string(body), 200)

	if m.spec.BodyEquals != "" {
		ev.add(bodyEquals(body, m.spec.BodyEquals, actual))
		if ev.done() {
			return
		}
	}
	if m.spec.BodyContains != "" {
		ev.add(bodyContains(body, m.spec.BodyContains, actual))
		if ev.done() {
			return
		}
	}
	if m.bodyRe != nil {
		ev.add(bodyPattern(body, m.bodyRe, actual))
	}
}

func bodyEquals(body []byte, want, actual string) FieldResult {
	f := FieldResult{Field: "bodyEquals", MaxScore: ScoreBodyEquals, Expected: want, Actual: actual}
	if string(body) == want {
		f.Matched, f.Score = true, ScoreBodyEquals
	} else {
		f.Reason = fmt.Sprintf("body expected exact match %q", truncate(want, 80))
	}
	return f
}

func bodyContains(body []byte, want, actual string) FieldResult {
	f := FieldResult{Field: "bodyContains", MaxScore: ScoreBodyContains, Expected: want, Actual: actual}
	if bytes.Contains(body, []byte(want)) {
		f.Matched, f.Score = true, ScoreBodyContains
	} else {
		f.Reason = fmt.Sprintf("body expected to contain %q", want)
	}
	return f
}

func bodyPattern(body []byte, re *regexp.Regexp, actual string) FieldResult {
	f := FieldResult{Field: "bodyPattern", MaxScore: ScoreBodyPattern, Expected: re.String(), Actual: actual}
	if re.Match(body) {
		f.Matched, f.Score = true, ScoreBodyPattern
	} else {
		f.Reason = fmt.Sprintf("body expected to match pattern %q", re.String())
	}
	return f
}
