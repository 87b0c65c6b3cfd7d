// Package image assembles the runtime image from a builder-stage
// environment root, without a container runtime or daemon.
//
// The environment root is packed into a single layer rooted at /app, with
// ownership assigned to a dedicated unprivileged account whose passwd and
// group entries ride along in the same layer. The layer is appended to a
// minimal base image and the image config is rewritten for least-privilege
// operation: PATH prefers the isolated environment's bin directory, bytecode
// caching and output buffering are disabled, exactly one port is declared,
// and the configured account is the active user.
//
// Layer contents are deterministic (lexical order, zeroed timestamps), so
// rebuilding from an unchanged environment root reproduces the same layer
// bytes. Nothing from the build side (dependency cache, VCS metadata,
// resolver state) is ever packed.
package image
