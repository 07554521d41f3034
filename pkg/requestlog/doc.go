// Package requestlog records the requests an interception scope has seen,
// which definition answered each one, and the near-misses of the ones that
// nothing answered.
//
// It is distinct from operational logging, which uses log/slog. The journal
// is what a test inspects after the fact: "which requests went unmatched?",
// "how many times was this definition hit?".
//
// # Usage
//
//	store := requestlog.NewMemoryStore(1000)
//	store.Log(&requestlog.Entry{Method: "GET", Host: "api.example.com", Path: "/users"})
//
//	for _, e := range store.List(&requestlog.Filter{Outcome: requestlog.OutcomeUnmatched}) {
//	    fmt.Println(e.Method, e.Path, e.NearMisses)
//	}
//
// This is a leaf package; it does not import the matching engine.
package requestlog
