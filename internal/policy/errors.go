package policy

import "errors"

var ErrMalformedEntry = errors.New("malformed policy entry")
