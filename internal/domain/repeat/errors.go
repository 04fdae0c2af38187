package repeat

import "errors"

// Sentinel kinds for rule evaluation. ErrUnsupportedRule guards the type
// switch default and should be unreachable with the sealed rule set;
// ErrMissingService is a configuration error, distinct from both validation
// failures and the nil "no further occurrence" outcome.
var (
	ErrUnsupportedRule = errors.New("unsupported repeat rule")
	ErrInvalidRule     = errors.New("invalid repeat rule")
	ErrMissingService  = errors.New("missing repeat rule service")
)
