package repair

import "errors"

var (
	ErrUnknownMode = errors.New("unknown repair mode")
	ErrBadPattern  = errors.New("invalid file pattern")
)
