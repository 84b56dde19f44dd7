// Package pipeline checks bookmarks.
//
// A check runs a Pipeline of Steps over a model.CheckReport: FetchStep
// navigates to the bookmark with a fresh engine, and SnapshotStep compares
// the page with the last stored snapshot. BatchProcessor runs one pipeline
// per bookmark, bounding concurrency with errgroup and spacing requests
// with a rate limiter.
package pipeline
