// Package preflight validates that the service can answer questions
// before it starts serving: configuration, corpus, embedding provider,
// vector store and local data directory.
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Target{Config: cfg, Loader: loader})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
