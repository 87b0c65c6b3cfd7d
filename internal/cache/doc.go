// Package cache implements the shared, cross-build dependency cache.
//
// The cache is an explicit content-addressed store rather than implicit
// shared filesystem state: entries are keyed by a digest computed over the
// inputs that produced them (manifest bytes, lock file bytes, platform,
// project tree) and committed atomically, so concurrent builds can read and
// append without coordination. Concurrent fills of the same key are
// deduplicated with singleflight.
//
// The store also carves out a directory that is handed to the external
// resolver as its own package cache, keeping every persistent build-time
// artifact under one mountable root. Nothing in this root is ever copied
// into a runtime image.
package cache
