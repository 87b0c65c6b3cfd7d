package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Computes a deterministic key over an ordered list of input parts.
//
// The kind string namespaces keys so that, e.g., a dependency-layer key and
// a project-layer key computed from overlapping inputs never collide. Each
// part is length-prefixed, so part boundaries contribute to the digest.
func Key(kind string, parts ...[]byte) digest.Digest {
	h := sha256.New()

	io.WriteString(h, kind)
	h.Write([]byte{0})

	var size [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write(part)
	}

	return digest.NewDigest(digest.SHA256, h)
}

// Computes a deterministic key over a directory tree.
//
// The walk order is lexical, so identical trees always hash identically.
// For each entry the relative path, file type, and content (regular files)
// or target (symlinks) are hashed. Timestamps, ownership, and permission
// bits are excluded: the key identifies what the tree contains, not when or
// by whom it was written. Entries for which skip returns true are ignored,
// along with everything beneath them when they are directories.
func TreeKey(dir string, skip func(rel string, isDir bool) bool) (digest.Digest, error) {
	h := sha256.New()

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
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

		io.WriteString(h, filepath.ToSlash(rel))
		h.Write([]byte{0})

		switch {
		case d.IsDir():
			h.Write([]byte{'d'})

		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			h.Write([]byte{'l'})
			io.WriteString(h, target)

		case d.Type().IsRegular():
			h.Write([]byte{'f'})
			if err := hashFile(h, path); err != nil {
				return err
			}
		}

		h.Write([]byte{0})
		return nil
	})
	if err != nil {
		return "", err
	}

	return digest.NewDigest(digest.SHA256, h), nil
}

// Streams a file's contents into the hash.
func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
