package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/containerd/platforms"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/kilnproject/kiln/internal/cache"
	"github.com/kilnproject/kiln/internal/manifest"
	"github.com/kilnproject/kiln/internal/paths"
	"github.com/kilnproject/kiln/internal/recipe"
	"github.com/kilnproject/kiln/internal/resolver"
)

// Controls pipeline execution.
type Options struct {
	ContextDir string            // Project root holding the manifest, lock file, and source.
	Output     string            // Directory for the exported image.
	CacheDir   string            // Shared dependency cache root. Empty uses the default location.
	Platforms  []string          // Target platforms (e.g., ["linux/amd64"]). Defaults to host.
	Resolver   resolver.Resolver // Dependency resolver. Defaults to uv.
}

// Returned after a successful build.
type Result struct {
	Output     string                              // Directory containing the exported image.
	BuildID    string                              // Unique identifier of this invocation.
	Keys       map[string]map[string]digest.Digest // Stage and sub-step cache keys, per platform.
	CacheStats cache.Stats                         // Dependency cache activity during the build.
}

// Executes the pipeline end-to-end.
//
// Inputs are loaded and cross-checked before any stage runs: a manifest/lock
// mismatch aborts immediately with no work started and no artifact produced.
// Each target platform is built independently in a throwaway work directory.
// The exported image lands in the output directory only when every stage of
// every platform succeeds.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.ContextDir == "" {
		opts.ContextDir = "."
	}
	if opts.Output == "" {
		opts.Output = "dist"
	}
	if opts.CacheDir == "" {
		opts.CacheDir = paths.Cache()
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.NewUV()
	}
	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{"linux/" + goruntime.GOARCH}
	}

	rcp, err := recipe.Load(opts.ContextDir)
	if err != nil {
		return nil, err
	}

	m, err := manifest.LoadManifest(filepath.Join(opts.ContextDir, manifest.ManifestFile))
	if err != nil {
		return nil, err
	}

	lock, err := manifest.LoadLockfile(filepath.Join(opts.ContextDir, manifest.LockFile))
	if err != nil {
		return nil, err
	}

	if err := manifest.Validate(m, lock); err != nil {
		return nil, err
	}

	store, err := cache.Open(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	buildID := uuid.NewString()

	slog.Info("executing pipeline",
		"project", m.Project.Name,
		"build", buildID,
		"output", opts.Output,
		"platforms", opts.Platforms,
	)

	keys := make(map[string]map[string]digest.Digest)
	skips := contextSkips(opts.ContextDir, opts.Output)

	for _, platform := range opts.Platforms {
		p, err := platforms.Parse(platform)
		if err != nil {
			return nil, fmt.Errorf("%w: platform %q: %w", ErrBuild, platform, err)
		}

		platformKeys := make(map[string]digest.Digest)
		keys[platform] = platformKeys

		state := &State{
			BuildID:    buildID,
			ContextDir: opts.ContextDir,
			OutputDir:  platformOutput(opts.Output, opts.Platforms, platform),
			SkipPaths:  skips,
			Platform:   p,
			Manifest:   m,
			Lockfile:   lock,
			Recipe:     rcp,
			Cache:      store,
			Resolver:   opts.Resolver,
			Keys:       platformKeys,
		}

		if err := runPlatform(ctx, state); err != nil {
			return nil, fmt.Errorf("%w: platform %s: %w", ErrBuild, platform, err)
		}
	}

	return &Result{
		Output:     opts.Output,
		BuildID:    buildID,
		Keys:       keys,
		CacheStats: store.Stats(),
	}, nil
}

// Builds all stages for a single platform inside a throwaway work
// directory. The directory is removed regardless of outcome; only the
// atomically written output survives a successful run.
func runPlatform(ctx context.Context, s *State) error {
	workDir, err := os.MkdirTemp("", "kiln-"+s.BuildID[:8]+"-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer os.RemoveAll(workDir)

	s.WorkDir = workDir
	s.EnvRoot = filepath.Join(workDir, "envroot")

	return New(&BuilderStage{}, &RuntimeStage{}).Run(ctx, s)
}

// Returns the output directory as a context-relative exclusion when it lies
// inside the context.
//
// Exported images must never feed back into a later build: the project copy
// would carry them into the runtime image, and the tree key would change on
// otherwise identical inputs.
func contextSkips(contextDir, output string) []string {
	ctxAbs, err := filepath.Abs(contextDir)
	if err != nil {
		return nil
	}
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return nil
	}

	rel, err := filepath.Rel(ctxAbs, outAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}

// Returns the output directory for a specific platform.
//
// A single-platform build writes directly to the output directory. Multi-
// platform builds get one subdirectory per platform (e.g., dist/linux-arm64).
func platformOutput(output string, all []string, platform string) string {
	if len(all) == 1 {
		return output
	}
	return filepath.Join(output, strings.ReplaceAll(platform, "/", "-"))
}
