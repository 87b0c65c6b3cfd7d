// Package recipe loads the optional build recipe (kiln.toml) that tunes the
// pipeline: base image, declared port, startup command, runtime account, and
// extra settings. A project without a recipe builds with the defaults.
package recipe
