package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Standard file name of the resolver lock file.
const LockFile = "uv.lock"

// Lock file format versions this tool understands.
const (
	minLockVersion = 1
	maxLockVersion = 1
)

// The parsed lock file: the resolver's pinned snapshot of every transitive
// dependency.
//
// Raw holds the original file contents so cache keys can be computed over
// the exact bytes rather than a re-serialized form.
type Lockfile struct {
	Version  int       `toml:"version"`
	Packages []Package `toml:"package"`

	Raw []byte `toml:"-"`
}

// A single resolved package pinned by the lock file.
type Package struct {
	Name    string     `toml:"name"`
	Version string     `toml:"version"`
	Source  Source     `toml:"source"`
	Sdist   *Artifact  `toml:"sdist"`
	Wheels  []Artifact `toml:"wheels"`
}

// Where a locked package comes from.
type Source struct {
	Registry string `toml:"registry"`
	Editable string `toml:"editable"`
	Virtual  string `toml:"virtual"`
}

// A downloadable distribution artifact with its content hash.
type Artifact struct {
	URL  string `toml:"url"`
	Hash string `toml:"hash"`
}

// Reads and parses a lock file from the given path.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockfile, err)
	}
	return ParseLockfile(data)
}

// Parses a lock file from raw TOML.
//
// The format version must be one this tool understands, and every package
// entry must carry a name and a version.
func ParseLockfile(data []byte) (*Lockfile, error) {
	var l Lockfile
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockfile, err)
	}

	if l.Version < minLockVersion || l.Version > maxLockVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrLockfile, l.Version)
	}

	for i, pkg := range l.Packages {
		if pkg.Name == "" {
			return nil, fmt.Errorf("%w: package %d has no name", ErrLockfile, i+1)
		}
		if pkg.Version == "" {
			return nil, fmt.Errorf("%w: package %q has no version", ErrLockfile, pkg.Name)
		}
	}

	l.Raw = data
	return &l, nil
}

// Returns the locked package with the given name, if present.
//
// Lookup uses PEP 503 name normalization on both sides.
func (l *Lockfile) Package(name string) (Package, bool) {
	want := NormalizeName(name)
	for _, pkg := range l.Packages {
		if NormalizeName(pkg.Name) == want {
			return pkg, true
		}
	}
	return Package{}, false
}

// True when the package is the project itself rather than a third-party
// dependency. The resolver records the project as a virtual or editable
// package in the lock file.
func (p Package) IsProject() bool {
	return p.Source.Virtual != "" || p.Source.Editable != ""
}
