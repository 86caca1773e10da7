// Package resolver determines the terminal HTTP outcome of discovered links.
//
// # Architecture
//
// The Resolver resolves one link at a time: it issues non-redirect-following
// requests, walks the redirect chain hop by hop up to a configured maximum,
// and classifies the result as a typed outcome (resolved, skipped, redirect
// loop, too many redirects, transient failure). No error ever escapes a
// resolution; every failure path is an outcome value.
//
// The Governor bounds how many resolutions run at once with a weighted
// semaphore and imposes a randomized pacing delay before each request, so a
// batch of thousands of links does not trip the target's abuse protections.
//
// The Batch runs the Resolver over a link list under the Governor using an
// errgroup, building each result record from the link carried by its own
// task. Completion order is unspecified and never used to index results.
package resolver
