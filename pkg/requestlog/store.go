package requestlog

// Logger is the minimal interface for recording entries.
type Logger interface {
	Log(entry *Entry)
}

// Store is a queryable journal. Store embeds Logger, so any Store can be
// used where a Logger is expected.
type Store interface {
	Logger

	// Get retrieves an entry by ID.
	Get(id string) *Entry

	// List returns entries, newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of entries.
	Count() int
}

// Filter defines criteria for filtering entries. Zero fields match anything.
type Filter struct {
	Outcome Outcome

	// Method matches case-sensitively against the upper-case request method.
	Method string

	// Host matches the request host exactly.
	Host string

	// Path filters by path prefix.
	Path string

	// MatchedID filters by answering definition.
	MatchedID string

	StatusCode int

	// HasError filters by error presence.
	HasError *bool

	// Limit is the maximum number of entries to return.
	Limit int

	// Offset is the number of entries to skip.
	Offset int
}

// Updater is implemented by stores whose entries can be amended after
// they are logged, e.g. when an unmatched request is later forwarded.
type Updater interface {
	Update(id string, fn func(*Entry)) bool
}
