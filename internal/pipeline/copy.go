package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Names excluded from every project-tree copy. These are build-side or
// tooling artifacts that must never reach the environment root: VCS
// metadata, interpreter caches, and any pre-existing local environment.
var defaultExcludes = []string{
	".git",
	".hg",
	".svn",
	".venv",
	"__pycache__",
	".mypy_cache",
	".pytest_cache",
	".ruff_cache",
}

// Builds a skip predicate from the default exclusions plus extra names.
//
// A path is skipped when any of its segments matches an excluded name, so
// "pkg/__pycache__/x.pyc" is excluded at any depth.
func skipList(extra []string) func(rel string, isDir bool) bool {
	names := make(map[string]bool, len(defaultExcludes)+len(extra))
	for _, n := range defaultExcludes {
		names[n] = true
	}
	for _, n := range extra {
		names[n] = true
	}

	return func(rel string, isDir bool) bool {
		for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
			if names[segment] {
				return true
			}
		}
		return false
	}
}

// Extends a skip predicate to also exclude the given paths and everything
// under them. Paths are slash-separated and relative to the tree root; the
// build's own output directory enters the exclusions this way whenever it
// lies inside the context.
func skipPaths(skip func(rel string, isDir bool) bool, paths []string) func(rel string, isDir bool) bool {
	if len(paths) == 0 {
		return skip
	}

	return func(rel string, isDir bool) bool {
		slashed := filepath.ToSlash(rel)
		for _, p := range paths {
			if slashed == p || strings.HasPrefix(slashed, p+"/") {
				return true
			}
		}
		return skip(rel, isDir)
	}
}

// Copies a directory tree, honoring the skip predicate.
//
// Directories are created with their source permissions, regular files are
// copied with mode preserved, and symlinks are recreated with their original
// targets. Existing files at the destination are overwritten; that is how
// the project overlay replaces the manifest and lock file copied in
// isolation earlier.
func copyTree(src, dst string, skip func(rel string, isDir bool) bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCopy, err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCopy, err)
		}
		if rel == "." {
			return nil
		}

		if skip != nil && skip(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCopy, err)
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("%w: %w", ErrCopy, err)
			}

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrCopy, err)
			}
			os.Remove(target)
			if err := os.Symlink(link, target); err != nil {
				return fmt.Errorf("%w: %w", ErrCopy, err)
			}

		case d.Type().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("%w: %w", ErrCopy, err)
			}

		default:
			return fmt.Errorf("%w: unsupported file type %s: %s", ErrCopy, d.Type(), rel)
		}

		return nil
	})
}

// Copies a single file, overwriting the destination.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
