package store

import (
	"github.com/xtxerr/warden/internal/errors"
)

var (
	ErrNotFound         = errors.ErrNotFound
	ErrTableNotFound    = errors.ErrTableNotFound
	ErrTableExists      = errors.ErrTableExists
	ErrNotReady         = errors.ErrNotReady
	ErrReadinessTimeout = errors.ErrReadinessTimeout
	ErrTransformFailed  = errors.ErrTransformFailed
	ErrNotIndexed       = errors.ErrNotIndexed
	ErrIndexOutOfRange  = errors.ErrIndexOutOfRange
	ErrClosed           = errors.ErrClosed
)
