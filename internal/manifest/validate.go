package manifest

import (
	"fmt"
	"strings"
)

// Cross-checks the manifest against the lock file.
//
// Every direct dependency named in the manifest must be pinned by the lock
// file, and the lock file must contain an entry for the project itself. Any
// gap means the two inputs were produced from different dependency sets and
// the build must abort before any stage runs.
func Validate(m *Manifest, l *Lockfile) error {
	var missing []string

	for _, name := range m.DependencyNames() {
		if _, ok := l.Package(name); !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: not pinned: %s", ErrLockMismatch, strings.Join(missing, ", "))
	}

	project, ok := l.Package(m.Project.Name)
	if !ok {
		return fmt.Errorf("%w: project %q is not in the lock file", ErrLockMismatch, m.Project.Name)
	}

	if m.Project.Version != "" && project.Version != m.Project.Version {
		return fmt.Errorf("%w: project version %s is locked as %s",
			ErrLockMismatch, m.Project.Version, project.Version)
	}

	return nil
}
