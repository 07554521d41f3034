// Package testing is a test harness over the interception engine.
//
// A Harness collects mocks with a fluent builder, builds a pool when the
// test starts, and binds an interception scope to the test context. Code
// under test obtains its client from that context, so no listener or port
// is involved and parallel tests stay isolated.
//
//	func TestFetchUser(t *testing.T) {
//	    h := mockdtest.New(t)
//	    h.Mock("GET", "/users/123").
//	        RespondJSON(map[string]string{"id": "123", "name": "Ada"}).
//	        Once().
//	        Reply()
//
//	    ctx := h.Start()
//	    user, err := users.Fetch(ctx, intercept.NewClient(ctx), "123")
//	    ...
//	    h.AssertCalledTimes(t, "GET", "/users/{id}", 1)
//	}
//
// The scope closes in t.Cleanup. By default a limited mock that was never
// consumed fails the test at that point; pass WithScopeOptions to change
// the teardown assertions or to let unmatched requests through.
//
// # Process-wide interception
//
// Code that builds its own clients can still be intercepted with Global,
// which replaces http.DefaultTransport for the duration of the test.
// Global harnesses are serialized, so tests using them should not call
// t.Parallel.
//
// # Request assertions
//
// Requests returns every intercepted request, newest first, with helpers
// for body, header, query and JSON field checks:
//
//	reqs := h.Requests()
//	reqs[0].AssertJSONField(t, "$.name", "Ada")
//	reqs[0].AssertHeader(t, "Authorization", "Bearer token")
package testing
