package cache

import "errors"

var (
	ErrCache    = errors.New("cache error")
	ErrNotFound = errors.New("cache entry not found")
)
