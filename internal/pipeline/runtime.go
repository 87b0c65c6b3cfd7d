package pipeline

import (
	"context"
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/kilnproject/kiln/internal/cache"
	"github.com/kilnproject/kiln/internal/image"
)

// Assembles the runtime image from the builder stage's environment root.
//
// The stage consumes the environment root and nothing else from the build
// side: the dependency cache, the work directory, and all resolver state
// stay behind. Output is written atomically; a failed assembly leaves no
// image artifact.
type RuntimeStage struct{}

// Returns the stage name.
func (*RuntimeStage) Name() string {
	return "runtime"
}

// Covers the builder output plus everything that shapes the image: the
// recipe (base, port, user, entrypoint, env) and the platform.
func (r *RuntimeStage) CacheKey(s *State) (digest.Digest, error) {
	fingerprint, err := s.Recipe.Fingerprint()
	if err != nil {
		return "", err
	}

	builder := s.Keys["builder"]
	return cache.Key("runtime", []byte(builder), fingerprint, []byte(s.platform())), nil
}

// Copies the environment root into a fresh image and writes it out.
func (r *RuntimeStage) Run(ctx context.Context, s *State) error {
	base, err := image.Base(ctx, s.Recipe.Base, v1Platform(s.Platform))
	if err != nil {
		return err
	}

	img, err := image.Assemble(base, image.Config{
		EnvRoot: s.EnvRoot,
		Account: image.Account{
			Name: s.Recipe.User.Name,
			UID:  s.Recipe.User.UID,
			GID:  s.Recipe.User.GID,
		},
		Port:       s.Recipe.Port,
		Entrypoint: s.Recipe.Entrypoint,
		Env:        s.Recipe.Env,
		Project:    s.Manifest.Project.Name,
		Version:    s.Manifest.Project.Version,
	})
	if err != nil {
		return err
	}

	s.Image = img

	return image.Write(img, r.imageRef(s), s.OutputDir)
}

// Returns the tag the exported archive is labeled with.
func (r *RuntimeStage) imageRef(s *State) string {
	version := s.Manifest.Project.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s:%s", s.Manifest.Project.Name, version)
}

// Converts an OCI platform into the registry client's representation.
func v1Platform(p ocispec.Platform) v1.Platform {
	return v1.Platform{
		OS:           p.OS,
		Architecture: p.Architecture,
		Variant:      p.Variant,
	}
}
