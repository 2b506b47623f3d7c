// Package preflight checks that menusearch can serve queries before it is
// put to work: the catalog parses, the index cache accepts writes, there is
// room on disk for file-backed indexes and the semantic model answers when
// reranking is enabled.
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, preflight.Target{CatalogPath: path, Blobs: blobs})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
