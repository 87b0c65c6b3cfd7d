package cli

import (
	"context"
	"log/slog"

	"github.com/kilnproject/kiln/internal/pipeline"
)

// Represents the 'kiln build' command.
type BuildCmd struct {
	Context  string   `arg:"" optional:"" default:"." help:"Project directory to build." type:"existingdir"`
	Output   string   `short:"o" default:"dist" help:"Directory for the exported image." placeholder:"DIR"`
	CacheDir string   `help:"Override the dependency cache location." placeholder:"DIR"`
	Platform []string `short:"p" help:"Target platform, repeatable (e.g. linux/amd64)." placeholder:"OS/ARCH"`
}

// Executes the build command.
//
// Runs the full pipeline locally: dependency resolution against the shared
// cache, project installation, and image assembly.
func (c *BuildCmd) Run(ctx context.Context) error {
	result, err := pipeline.Run(ctx, pipeline.Options{
		ContextDir: c.Context,
		Output:     c.Output,
		CacheDir:   c.CacheDir,
		Platforms:  c.Platform,
	})
	if err != nil {
		return err
	}

	slog.Info("build complete",
		"output", result.Output,
		"build", result.BuildID,
		"cache_hits", result.CacheStats.Hits,
		"cache_misses", result.CacheStats.Misses,
	)
	return nil
}
