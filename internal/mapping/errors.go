package mapping

import "errors"

var (
	ErrNoCatchAll     = errors.New("rule table must end with a catch-all rule")
	ErrInvalidPattern = errors.New("invalid rule pattern")
)
