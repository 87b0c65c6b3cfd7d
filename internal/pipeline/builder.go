package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/kilnproject/kiln/internal/cache"
	"github.com/kilnproject/kiln/internal/manifest"
	"github.com/kilnproject/kiln/internal/paths"
	"github.com/kilnproject/kiln/internal/resolver"
)

// Keys under which the builder stage records its sub-step cache keys.
const (
	DepsKey    = "builder.deps"
	ProjectKey = "builder.project"
)

// Materializes the environment root: resolved dependencies first, the
// project itself second.
//
// The split is a caching decision. Dependency installation is keyed only on
// the manifest, the lock file, and the platform, so edits to project source
// reuse the cached dependency environment untouched. Project installation
// is keyed on the project tree as well and reruns whenever source changes.
type BuilderStage struct{}

// Returns the stage name.
func (*BuilderStage) Name() string {
	return "builder"
}

// Covers everything the environment root depends on: manifest, lock file,
// platform, and the project tree.
func (b *BuilderStage) CacheKey(s *State) (digest.Digest, error) {
	tree, err := cache.TreeKey(s.ContextDir, s.skip())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	return cache.Key("builder",
		s.Manifest.Raw,
		s.Lockfile.Raw,
		[]byte(s.platform()),
		[]byte(tree),
	), nil
}

// Builds the environment root in two steps.
func (b *BuilderStage) Run(ctx context.Context, s *State) error {
	if err := os.MkdirAll(s.EnvRoot, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	if err := b.installDependencies(ctx, s); err != nil {
		return err
	}
	return b.installProject(ctx, s)
}

// Step A: install the locked dependencies, without the project.
//
// Only the manifest and lock file are copied into the environment root, in
// isolation from the rest of the tree, so the resolver sees nothing that
// could vary with project source. The materialized dependency environment
// is committed to the shared cache; a later build with the same key
// restores it without invoking the resolver at all.
func (b *BuilderStage) installDependencies(ctx context.Context, s *State) error {
	for _, name := range []string{manifest.ManifestFile, manifest.LockFile} {
		src := filepath.Join(s.ContextDir, name)
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
		if err := copyFile(src, filepath.Join(s.EnvRoot, name), info.Mode().Perm()); err != nil {
			return fmt.Errorf("%w: %w", ErrCopy, err)
		}
	}

	key := cache.Key("deps", s.Manifest.Raw, s.Lockfile.Raw, []byte(s.platform()))
	s.Keys[DepsKey] = key

	venv := filepath.Join(s.EnvRoot, ".venv")

	path, hit, err := s.Cache.Materialize(key, func(w io.Writer) error {
		if err := s.Resolver.Sync(ctx, b.syncOptions(s, true)); err != nil {
			return err
		}
		return packTree(w, venv)
	})
	if err != nil {
		return err
	}

	if hit {
		slog.Info("dependency environment restored from cache", "key", key)

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
		defer f.Close()

		if err := unpackTree(f, venv); err != nil {
			return err
		}
	}

	return nil
}

// Step B: overlay the project tree and install the project itself.
//
// The resolver runs against the same shared cache, so anything unchanged
// since step A is reused; only the project install is new work.
func (b *BuilderStage) installProject(ctx context.Context, s *State) error {
	if err := copyTree(s.ContextDir, s.EnvRoot, s.skip()); err != nil {
		return err
	}

	return s.Resolver.Sync(ctx, b.syncOptions(s, false))
}

// Resolver options shared by both steps.
func (b *BuilderStage) syncOptions(s *State, depsOnly bool) resolver.SyncOptions {
	return resolver.SyncOptions{
		Dir:              s.EnvRoot,
		CacheDir:         s.Cache.ResolverDir(),
		NoInstallProject: depsOnly,
		Frozen:           true,
		CompileBytecode:  true,
		CopyLinkMode:     true,
	}
}
