// Package pipeline orchestrates the build: a strictly ordered sequence of
// stages that turns a manifest, a lock file, and a project tree into a
// runtime image.
//
// A stage declares a cache key over its inputs and a run action. The
// standard pipeline has two stages: the builder stage materializes the
// environment root (dependencies first, project second, both through the
// shared cache), and the runtime stage packs that root into a minimal
// least-privilege image. The sequence is general; nothing limits a pipeline
// to exactly two stages.
//
// Execution is linear and one-directional. Every stage failure is fatal to
// the build, work happens in a throwaway directory, and outputs are swapped
// into place only on success, so a failed build leaves no artifact behind.
//
// Example usage:
//
//	result, err := pipeline.Run(ctx, pipeline.Options{
//	    ContextDir: ".",
//	    Output:     "dist",
//	    Platforms:  []string{"linux/amd64"},
//	})
//	if err != nil {
//	    return err
//	}
package pipeline
