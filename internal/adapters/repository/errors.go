package repository

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrStorage       = errors.New("storage failure")
	ErrCorruptData   = errors.New("corrupt analytics data")
	ErrUnknownDriver = errors.New("unknown store driver")
)
