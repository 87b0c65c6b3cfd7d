package image

import "errors"

var (
	ErrAssemble = errors.New("image assembly failed")
	ErrBase     = errors.New("base image unavailable")
	ErrWrite    = errors.New("image write failed")
)
