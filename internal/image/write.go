package image

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

const (

	// Filename of the docker-compatible archive inside the output directory.
	ArchiveFilename = "image.tar"

	// Directory name of the OCI layout inside the output directory.
	LayoutDirname = "oci"
)

// Writes the image to the output directory as both a docker-compatible
// archive (image.tar) and an OCI layout (oci/).
//
// Everything is staged in a sibling directory and swapped into place in one
// rename, so a failed write never leaves a partial output directory behind.
func Write(img v1.Image, ref string, output string) error {
	tag, err := name.NewTag(ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	staging := output + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.RemoveAll(staging)

	if err := tarball.WriteToFile(filepath.Join(staging, ArchiveFilename), tag, img); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	index := mutate.AppendManifests(empty.Index, mutate.IndexAddendum{Add: img})
	if _, err := layout.Write(filepath.Join(staging, LayoutDirname), index); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if err := os.RemoveAll(output); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(staging, output); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	slog.Info("image written", "ref", ref, "output", output)
	return nil
}
