// Package intercept redirects HTTP clients used by code under test to a
// mock pool.
//
// A Scope binds an *engine.Pool either to a context or process-wide. Code
// under test obtains its client through NewClient, which returns a client
// wired to the scope in effect, or an ordinary client when none is:
//
//	ctx, scope := intercept.Bind(ctx, pool, intercept.Options{
//	    AssertFullyConsumedOnClose: true,
//	})
//	defer func() { require.NoError(t, scope.Close()) }()
//
//	client := intercept.NewClient(ctx)
//	resp, err := client.Get("https://api.example.com/users/1")
//
// Context-bound scopes are invisible to each other, so parallel tests can
// each bind their own pool. Open installs a process-wide binding instead;
// process-wide scopes are serialized, and a second Open waits until the
// first one closes. With Options.ReplaceDefaultTransport, Open also swaps
// http.DefaultTransport so clients the code under test builds itself are
// intercepted too.
//
// Close restores the previous state exactly once and runs the teardown
// assertions selected in Options.
package intercept
