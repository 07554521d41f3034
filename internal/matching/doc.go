// Package matching evaluates mock matchers against intercepted requests.
//
// A matcher is compiled once with Compile, which checks regexes, JSON
// schemas, XPath and expr programs up front. The compiled Matcher then
// answers two questions:
//
//   - Match: does the request satisfy every condition? Evaluation stops at
//     the first failing condition.
//   - Breakdown: which conditions passed and which failed? Every condition
//     is evaluated, and the result feeds the near-miss report attached to
//     NoMatch errors.
//
// Both share one evaluation routine, so a request matches exactly when its
// breakdown has no failing field.
//
// Each condition carries a weight (see scores.go). Scores only rank
// near-misses for diagnostics; resolution itself is first-match-wins.
package matching
