package apperr

import "errors"

var (
	ErrCorruptState    = errors.New("corrupt state file")
	ErrPathOverlap     = errors.New("source and target overlap")
	ErrDelimiterInPath = errors.New("path contains state delimiter")
)
