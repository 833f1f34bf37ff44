// Package services is where extraction happens.
//
// ExtractionService drives a run: for each domain it fetches entities,
// compares fingerprints against the cache, sends changed entities through
// the generate/judge pipeline and hands the result to ReplaceSync. The
// remaining services (push, cache, report, settings) are thin use cases
// over the same ports.
//
// Nothing in this package imports an adapter. cmd/qa-extract does the wiring.
package services
