// Package resolver defines the contract with the external dependency
// resolver and provides the uv-backed implementation.
//
// The resolver is an opaque external tool: given a project directory holding
// a manifest and a lock file, a Sync call materializes an isolated,
// reproducible environment under that directory. The pipeline drives it in
// two passes (dependencies only, then the project itself) and points it at
// a shared cache directory so repeated builds do not re-fetch packages.
//
// Any resolver failure (lock mismatch, network error, non-zero exit) is
// fatal to the build. No retries happen at this layer.
package resolver
