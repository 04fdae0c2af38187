package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrMissingID = errors.New("missing id")
)
