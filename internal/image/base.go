package image

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Reference value selecting an empty base instead of a registry image.
const BaseScratch = "scratch"

// Resolves the base image for the runtime stage.
//
// "scratch" yields an empty image. Anything else is treated as a registry
// reference and pulled for the requested platform using the default
// credential keychain. The pull is the runtime stage's only network
// operation; its failure aborts the build.
func Base(ctx context.Context, ref string, platform v1.Platform) (v1.Image, error) {
	if ref == BaseScratch {
		return empty.Image, nil
	}

	parsed, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBase, err)
	}

	img, err := remote.Image(parsed,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
		remote.WithPlatform(platform),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBase, ref, err)
	}

	return img, nil
}
