package phenomenon

import "errors"

// ErrUnsupportedTimePolicy indicates an unknown time policy value. With the
// three policies handled exhaustively it signals a defect, never a normal
// outcome.
var ErrUnsupportedTimePolicy = errors.New("unsupported time policy")
