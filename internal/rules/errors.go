package rules

import "errors"

var (
	ErrRuleNotFound      = errors.New("rule not found")
	ErrMalformedBaseline = errors.New("malformed baseline")
	ErrMalformedRule     = errors.New("malformed rule")
)
