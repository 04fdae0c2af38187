package schema

import "errors"

// Sentinel kinds for schema lookups. These allow errors.Is/As from callers.
var (
	ErrUnknownMonth   = errors.New("unknown month id")
	ErrInvalidSchema  = errors.New("invalid calendar schema")
	ErrDayOfYearRange = errors.New("day-of-year out of range")
)
