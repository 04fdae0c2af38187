package timestamp

import "errors"

// Sentinel kinds for timestamp arithmetic.
var (
	ErrUnknownUnit = errors.New("unknown time unit")
)
