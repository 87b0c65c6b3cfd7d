package resolver

import "context"

// Controls a single resolver invocation.
type SyncOptions struct {
	// Directory containing the manifest and lock file. The environment is
	// materialized under this directory.
	Dir string

	// Shared package cache directory, reused across builds. Empty lets the
	// resolver pick its own default.
	CacheDir string

	// Install only the locked dependencies, not the project itself.
	NoInstallProject bool

	// Require the installed versions to match the lock file exactly. A
	// manifest/lock mismatch fails the invocation.
	Frozen bool

	// Precompile bytecode during install. Trades install time for cold-start
	// latency of the resulting environment.
	CompileBytecode bool

	// Materialize packages as full copies instead of links into the cache,
	// so the environment stays usable after the cache is gone.
	CopyLinkMode bool
}

// The external dependency resolver contract.
//
// Implementations materialize a reproducible environment from a manifest and
// a lock file. The zero-value environment directory must be safe to discard
// on failure; no partial state is reported as success.
type Resolver interface {
	// Identifies the resolver in logs and error messages.
	Name() string

	// Materializes the environment described by opts.
	Sync(ctx context.Context, opts SyncOptions) error
}
