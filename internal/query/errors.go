package query

import "errors"

var ErrInvalidQuery = errors.New("invalid query")
