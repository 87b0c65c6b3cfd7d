package manifest

import "errors"

var (
	ErrManifest     = errors.New("invalid manifest")
	ErrLockfile     = errors.New("invalid lock file")
	ErrLockMismatch = errors.New("lock file does not satisfy manifest")
)
