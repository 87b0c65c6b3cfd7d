package image

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// Path the environment root occupies inside the runtime image.
const EnvRootPath = "/app"

// Fixed modification time for every layer entry. Zeroed timestamps make the
// layer a pure function of the environment root's contents.
var epoch = time.Unix(0, 0)

// Packs an environment root into an image layer.
//
// The tree at root is archived under /app with ownership assigned to the
// account, followed by the /etc/passwd and /etc/group entries that create
// the account and its home directory. Building the layer twice from the
// same tree yields identical bytes.
func EnvironmentLayer(root string, acct Account) (v1.Layer, error) {
	layer, err := tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(writeLayer(pw, root, acct))
		}()
		return pr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemble, err)
	}
	return layer, nil
}

// Streams the layer tar: the environment root, then the account files.
func writeLayer(w io.Writer, root string, acct Account) error {
	tw := tar.NewWriter(w)

	if err := writeTree(tw, root, acct); err != nil {
		return err
	}
	if err := writeAccount(tw, acct); err != nil {
		return err
	}

	return tw.Close()
}

// Archives the environment root under /app.
//
// WalkDir visits entries in lexical order, so the archive layout is
// deterministic. Regular files, directories, and symlinks are carried over;
// anything else (sockets, devices) has no place in an environment root and
// is rejected.
func writeTree(tw *tar.Writer, root string, acct Account) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		// Archive names are relative, per layer convention; EnvRootPath is
		// the absolute in-image location.
		name := "app"
		if rel != "." {
			name = "app/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return writeHeader(tw, &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     int64(info.Mode().Perm()),
			}, acct)

		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return writeHeader(tw, &tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     name,
				Linkname: target,
			}, acct)

		case d.Type().IsRegular():
			if err := writeHeader(tw, &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Mode:     int64(info.Mode().Perm()),
				Size:     info.Size(),
			}, acct); err != nil {
				return err
			}
			return copyFile(tw, path)

		default:
			return fmt.Errorf("%w: unsupported file type %s in environment root: %s",
				ErrAssemble, d.Type(), rel)
		}
	})
}

// Writes the passwd, group, and home directory entries for the account.
func writeAccount(tw *tar.Writer, acct Account) error {
	rootOwned := Account{Name: "root", UID: 0, GID: 0}

	passwd := acct.passwd()
	if err := writeHeader(tw, &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     "etc/",
		Mode:     0755,
	}, rootOwned); err != nil {
		return err
	}
	if err := writeFile(tw, "etc/passwd", passwd, rootOwned); err != nil {
		return err
	}
	if err := writeFile(tw, "etc/group", acct.group(), rootOwned); err != nil {
		return err
	}

	if err := writeHeader(tw, &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     "home/",
		Mode:     0755,
	}, rootOwned); err != nil {
		return err
	}
	return writeHeader(tw, &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     acct.Home()[1:] + "/",
		Mode:     0755,
	}, acct)
}

// Writes a header with normalized ownership and timestamp.
func writeHeader(tw *tar.Writer, hdr *tar.Header, owner Account) error {
	hdr.Uid = owner.UID
	hdr.Gid = owner.GID
	hdr.Uname = owner.Name
	hdr.Gname = owner.Name
	hdr.ModTime = epoch
	return tw.WriteHeader(hdr)
}

// Writes a small regular file entry.
func writeFile(tw *tar.Writer, name, content string, owner Account) error {
	if err := writeHeader(tw, &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0644,
		Size:     int64(len(content)),
	}, owner); err != nil {
		return err
	}
	_, err := io.WriteString(tw, content)
	return err
}

// Streams a file's contents into the archive.
func copyFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
