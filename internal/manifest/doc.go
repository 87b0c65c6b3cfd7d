// Package manifest models the declarative inputs of a build: the project
// manifest (pyproject.toml) and the resolver lock file (uv.lock).
//
// Both files are treated as immutable inputs. The package parses just enough
// of each format to identify the project and its direct dependencies; full
// requirement-specifier semantics belong to the external resolver.
//
// Validate cross-checks the two inputs before any build stage runs: every
// direct dependency declared in the manifest must be pinned by the lock
// file. A mismatch is a hard failure and the pipeline never starts.
package manifest
