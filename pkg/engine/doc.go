// Package engine resolves intercepted requests against a pool of mock
// definitions and tracks how often each definition has been consumed.
//
// # Pools
//
// A Pool is built from providers. Their definitions are concatenated in
// provider order, then supply order, and that registration order is the
// match priority:
//
//	pool, err := engine.Build([]mock.Provider{
//	    mock.Static("orders",
//	        api.Post("/orders").WithStatus(201).Once(),
//	        api.Post("/orders").WithStatus(409),
//	    ),
//	})
//
// Resolve picks the first definition whose matcher accepts the request and
// that still has uses left. An exhausted definition is skipped, so the
// request above falls through from the one-shot 201 to the reusable 409.
//
// # Errors
//
// Build fails with ErrMalformedDefinition. Resolve fails with ErrNoMatch,
// whose *NoMatchError carries near-misses ranked by how many conditions
// they satisfied. AssertFullyConsumed and AssertOrdered report teardown
// problems as ErrUnconsumedMocks and ErrOutOfOrder.
//
// # Concurrency
//
// All Pool methods are safe for concurrent use. Matching and the counter
// increment happen under one lock, so a one-shot definition is never
// granted twice. Responses are produced after the lock is released.
package engine
