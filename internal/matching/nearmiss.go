package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// FieldResult describes whether a single matcher condition matched the request.
type FieldResult struct {
	Field    string      `json:"field"`
	Matched  bool        `json:"matched"`
	Score    int         `json:"score"`
	MaxScore int         `json:"maxScore"`
	Expected interface{} `json:"expected,omitempty"`
	Actual   interface{} `json:"actual,omitempty"`
	// Reason describes a mismatch, e.g. "header X-Key missing".
	Reason string `json:"reason,omitempty"`
	// Details holds extra multi-line context such as a JSON diff.
	Details string `json:"details,omitempty"`
}

// NearMiss is a definition that partially matched an incoming request.
type NearMiss struct {
	DefinitionID   string `json:"definitionId"`
	DefinitionName string `json:"definitionName,omitempty"`
	// Index is the registration position of the definition in its pool.
	Index       int    `json:"index"`
	Description string `json:"description"`

	// Satisfied counts the conditions that passed out of Conditions.
	Satisfied  int `json:"satisfied"`
	Conditions int `json:"conditions"`

	Score            int           `json:"score"`
	MaxPossibleScore int           `json:"maxPossibleScore"`
	MatchPercentage  int           `json:"matchPercentage"`
	Fields           []FieldResult `json:"fields"`
	Reason           string        `json:"reason"`
}

// Breakdown evaluates every condition of the matcher against the request
// and summarizes the result. Identification fields are left for the caller.
func (m *Matcher) Breakdown(r *mock.Request, opts Options) *NearMiss {
	ev := m.evaluate(r, opts, false)
	return summarize(ev.fields)
}

func summarize(fields []FieldResult) *NearMiss {
	nm := &NearMiss{Fields: fields, Conditions: len(fields)}
	for _, f := range fields {
		nm.MaxPossibleScore += f.MaxScore
		if f.Matched {
			nm.Satisfied++
			nm.Score += f.Score
		}
	}
	if nm.MaxPossibleScore > 0 {
		nm.MatchPercentage = nm.Score * 100 / nm.MaxPossibleScore
	}
	nm.Reason = GenerateReason(fields)
	return nm
}

// AddField appends a condition evaluated outside the matcher, such as the
// consumption limit, and refreshes the summary.
func (nm *NearMiss) AddField(f FieldResult) {
	fields := append(nm.Fields, f)
	id, name, index, desc := nm.DefinitionID, nm.DefinitionName, nm.Index, nm.Description
	*nm = *summarize(fields)
	nm.DefinitionID, nm.DefinitionName, nm.Index, nm.Description = id, name, index, desc
}

// Failed returns the conditions that did not match.
func (nm *NearMiss) Failed() []FieldResult {
	var out []FieldResult
	for _, f := range nm.Fields {
		if !f.Matched {
			out = append(out, f)
		}
	}
	return out
}

// RankNearMisses keeps the near-misses that satisfied at least one
// condition and orders them by satisfied conditions, then score, then
// registration order. topN <= 0 keeps all of them.
func RankNearMisses(candidates []*NearMiss, topN int) []*NearMiss {
	var out []*NearMiss
	for _, nm := range candidates {
		if nm != nil && nm.Satisfied > 0 {
			out = append(out, nm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Satisfied != b.Satisfied {
			return a.Satisfied > b.Satisfied
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Index < b.Index
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// GenerateReason produces a human-readable explanation from field results.
// It lists what matched and then the first mismatch, e.g.
// "method and path matched, but header X-Key missing".
func GenerateReason(fields []FieldResult) string {
	var matched []string
	var firstMismatch *FieldResult

	for i := range fields {
		f := &fields[i]
		if f.Matched {
			matched = append(matched, f.Field)
		} else if firstMismatch == nil {
			firstMismatch = f
		}
	}

	if firstMismatch == nil {
		return "all specified fields matched"
	}

	if len(matched) == 0 {
		return formatMismatch(firstMismatch)
	}

	return joinFields(matched) + " matched, but " + formatMismatch(firstMismatch)
}

// formatMismatch formats a single field mismatch into a human-readable string.
func formatMismatch(f *FieldResult) string {
	if f.Reason != "" {
		return f.Reason
	}
	return f.Field + " did not match"
}

// joinFields joins field names with commas and "and".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}

// FormatReport renders the diagnostic report for an unmatched request:
// the request itself and, for each near-miss, every condition with its
// pass/fail status.
func FormatReport(r *mock.Request, nearMisses []*NearMiss) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no mock matched %s", r.String())
	if r.Host != "" {
		fmt.Fprintf(&sb, " (host %s)", r.Host)
	}
	sb.WriteByte('\n')

	if len(nearMisses) == 0 {
		sb.WriteString("  no near misses\n")
		return sb.String()
	}

	sb.WriteString("  near misses:\n")
	for i, nm := range nearMisses {
		label := nm.DefinitionName
		if label == "" {
			label = nm.DefinitionID
		}
		fmt.Fprintf(&sb, "  %d. %s [%s] %d/%d conditions: %s\n",
			i+1, label, nm.Description, nm.Satisfied, nm.Conditions, nm.Reason)
		for _, f := range nm.Fields {
			if f.Matched {
				fmt.Fprintf(&sb, "       pass  %s\n", f.Field)
				continue
			}
			fmt.Fprintf(&sb, "       FAIL  %s\n", formatMismatch(&f))
			if f.Details != "" {
				for _, line := range strings.Split(f.Details, "\n") {
					fmt.Fprintf(&sb, "             %s\n", line)
				}
			}
		}
	}
	return sb.String()
}

// truncate shortens a string to maxLen, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
