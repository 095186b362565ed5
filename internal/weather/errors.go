package weather

import "errors"

// Failure kinds surfaced by the pipeline. Stage errors wrap exactly one of
// them together with the underlying cause.
var (
	ErrNetwork         = errors.New("network error")
	ErrParse           = errors.New("parse error")
	ErrInvalidPlace    = errors.New("invalid place")
	ErrNoLocationFound = errors.New("no location found")
)
