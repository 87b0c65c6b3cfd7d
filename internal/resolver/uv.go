package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Name of the uv binary looked up on PATH.
const uvBinary = "uv"

// Resolver backed by the uv CLI.
type UV struct {
	binary string
}

// Creates a uv-backed resolver.
func NewUV() *UV {
	return &UV{binary: uvBinary}
}

// Returns the resolver name for logs.
func (u *UV) Name() string {
	return "uv"
}

// Runs "uv sync" in the project directory.
//
// The invocation inherits the parent environment with the cache and install
// behavior flags overlaid. Stderr is captured and attached to the error on a
// non-zero exit; uv's own output is otherwise discarded, progress belongs to
// uv, not this tool.
func (u *UV) Sync(ctx context.Context, opts SyncOptions) error {
	args := syncArgs(opts)

	slog.Debug("resolver sync",
		"binary", u.binary,
		"args", strings.Join(args, " "),
		"dir", opts.Dir,
	)

	cmd := exec.CommandContext(ctx, u.binary, args...)
	cmd.Dir = opts.Dir
	cmd.Env = syncEnv(os.Environ(), opts)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, u.binary)
		}
		return fmt.Errorf("%w: %w: %s", ErrSyncFailed, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Builds the argument list for "uv sync" from the options.
func syncArgs(opts SyncOptions) []string {
	args := []string{"sync"}

	if opts.Frozen {
		args = append(args, "--frozen")
	}
	if opts.NoInstallProject {
		args = append(args, "--no-install-project")
	}

	return args
}

// Overlays resolver behavior variables on a base environment.
//
// UV_CACHE_DIR points at the shared cross-build cache. UV_COMPILE_BYTECODE
// precompiles bytecode at install time. UV_LINK_MODE=copy keeps the
// environment free of links into the cache so it survives being copied out.
func syncEnv(base []string, opts SyncOptions) []string {
	env := append([]string(nil), base...)

	if opts.CacheDir != "" {
		env = append(env, "UV_CACHE_DIR="+opts.CacheDir)
	}
	if opts.CompileBytecode {
		env = append(env, "UV_COMPILE_BYTECODE=1")
	}
	if opts.CopyLinkMode {
		env = append(env, "UV_LINK_MODE=copy")
	}

	return env
}
