package resolver

import "errors"

var (
	ErrResolver   = errors.New("resolver failed")
	ErrNotFound   = errors.New("resolver binary not found")
	ErrSyncFailed = errors.New("dependency sync failed")
)
