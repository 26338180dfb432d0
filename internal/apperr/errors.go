package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNotReady = errors.New("no graph built yet")
)
