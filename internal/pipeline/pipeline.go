package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerd/platforms"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/kilnproject/kiln/internal/cache"
	"github.com/kilnproject/kiln/internal/manifest"
	"github.com/kilnproject/kiln/internal/recipe"
	"github.com/kilnproject/kiln/internal/resolver"
)

// A named pipeline stage.
//
// CacheKey must cover every input that can change the stage's output; two
// builds with equal keys may share results. Run performs the stage's work
// against the shared state. A stage never runs twice in one build and never
// observes a later stage's effects.
type Stage interface {
	Name() string
	CacheKey(s *State) (digest.Digest, error)
	Run(ctx context.Context, s *State) error
}

// Shared state threaded through the stages of one platform build.
//
// Earlier stages populate fields that later stages consume: the builder
// stage fills the environment root, the runtime stage reads it and sets the
// image. Keys records each stage's cache key (and the builder's sub-step
// keys) for logging and inspection.
type State struct {
	BuildID    string
	ContextDir string
	WorkDir    string
	EnvRoot    string
	OutputDir  string
	SkipPaths  []string // Context-relative paths excluded from copies and tree keys.
	Platform   ocispec.Platform

	Manifest *manifest.Manifest
	Lockfile *manifest.Lockfile
	Recipe   *recipe.Recipe

	Cache    *cache.Store
	Resolver resolver.Resolver

	Image v1.Image
	Keys  map[string]digest.Digest
}

// Returns the normalized platform string (e.g., "linux/amd64").
func (s *State) platform() string {
	return platforms.Format(s.Platform)
}

// Returns the skip predicate applied to every project-tree walk: the recipe
// exclusions plus the build's own output location.
func (s *State) skip() func(rel string, isDir bool) bool {
	return skipPaths(skipList(s.Recipe.Exclude), s.SkipPaths)
}

// An ordered sequence of stages.
type Pipeline struct {
	stages []Stage
}

// Creates a pipeline from stages in execution order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Executes the stages in order against the shared state.
//
// Each stage's cache key is computed and recorded before the stage runs.
// The first failure stops the pipeline. There is no rollback and no retry;
// a failed stage simply yields no image.
func (p *Pipeline) Run(ctx context.Context, s *State) error {
	for _, stage := range p.stages {
		key, err := stage.CacheKey(s)
		if err != nil {
			return fmt.Errorf("%w: stage %s: %w", ErrBuild, stage.Name(), err)
		}
		s.Keys[stage.Name()] = key

		slog.Info("running stage",
			"stage", stage.Name(),
			"platform", s.platform(),
			"key", key,
		)

		if err := stage.Run(ctx, s); err != nil {
			return fmt.Errorf("%w: stage %s: %w", ErrBuild, stage.Name(), err)
		}
	}

	return nil
}
