package requestlog

import "time"

// Outcome says how an intercepted request was handled.
type Outcome string

// Outcomes.
const (
	// OutcomeMatched: a definition answered the request.
	OutcomeMatched Outcome = "matched"
	// OutcomeUnmatched: no definition matched and the request failed.
	OutcomeUnmatched Outcome = "unmatched"
	// OutcomePassthrough: no definition matched and the request went to the
	// real transport.
	OutcomePassthrough Outcome = "passthrough"
	// OutcomeError: a definition matched but its responder failed.
	OutcomeError Outcome = "error"
)

// Entry captures one intercepted request and how it was answered.
type Entry struct {
	// ID is a time-ordered identifier assigned by the store.
	ID string `json:"id"`

	// Seq is the arrival position of the request within its pool, starting at 0.
	Seq int64 `json:"seq"`

	// Timestamp is when the request was intercepted.
	Timestamp time.Time `json:"timestamp"`

	Method      string              `json:"method"`
	Host        string              `json:"host,omitempty"`
	Path        string              `json:"path"`
	QueryString string              `json:"queryString,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`

	// Body is the request body, truncated to MaxBodyLength.
	Body     string `json:"body,omitempty"`
	BodySize int    `json:"bodySize"`

	Outcome Outcome `json:"outcome"`

	// MatchedID and MatchedName identify the answering definition.
	MatchedID   string `json:"matchedId,omitempty"`
	MatchedName string `json:"matchedName,omitempty"`

	ResponseStatus int `json:"responseStatus,omitempty"`
	DurationMs     int `json:"durationMs"`

	// Error holds the responder or transport error, if any.
	Error string `json:"error,omitempty"`

	// NearMisses is set for unmatched and passthrough requests.
	NearMisses []NearMissInfo `json:"nearMisses,omitempty"`
}

// MaxBodyLength bounds Entry.Body.
const MaxBodyLength = 10 << 10

// TruncateBody returns body cut to MaxBodyLength.
func TruncateBody(body []byte) string {
	if len(body) <= MaxBodyLength {
		return string(body)
	}
	return string(body[:MaxBodyLength])
}
