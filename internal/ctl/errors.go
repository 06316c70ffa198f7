package ctl

import "errors"

// ErrUsage marks invalid command-line input.
var ErrUsage = errors.New("invalid usage")
