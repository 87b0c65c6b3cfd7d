package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Standard file name of the project manifest.
const ManifestFile = "pyproject.toml"

// The parsed project manifest.
//
// Raw holds the original file contents so cache keys can be computed over
// the exact bytes rather than a re-serialized form.
type Manifest struct {
	Project Project `toml:"project"`

	Raw []byte `toml:"-"`
}

// The [project] table of the manifest.
type Project struct {
	Name           string   `toml:"name"`
	Version        string   `toml:"version"`
	RequiresPython string   `toml:"requires-python"`
	Dependencies   []string `toml:"dependencies"`
}

// Reads and parses a project manifest from the given path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return ParseManifest(data)
}

// Parses a project manifest from raw TOML.
//
// The manifest must contain a [project] table with a non-empty name.
// Dependency entries are kept verbatim; only the distribution name is
// extracted when cross-checking against the lock file.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	if m.Project.Name == "" {
		return nil, fmt.Errorf("%w: missing project name", ErrManifest)
	}

	m.Raw = data
	return &m, nil
}

// Returns the normalized names of the project's direct dependencies.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Project.Dependencies))
	for _, dep := range m.Project.Dependencies {
		if name := RequirementName(dep); name != "" {
			names = append(names, NormalizeName(name))
		}
	}
	return names
}

// Matches the leading distribution name of a PEP 508 requirement string.
var requirementNameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?`)

// Extracts the distribution name from a requirement string.
//
// A requirement like "mcp[cli]>=1.6.0" or "pandas >=2.0; python_version >=
// '3.9'" yields just the name. Extras, version specifiers, and environment
// markers are the resolver's concern.
func RequirementName(requirement string) string {
	return requirementNameRe.FindString(strings.TrimSpace(requirement))
}

// Normalizes a distribution name per PEP 503.
//
// Comparison of package names is case-insensitive and treats runs of "-",
// "_", and "." as equivalent.
var normalizeRe = regexp.MustCompile(`[-_.]+`)

func NormalizeName(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}
