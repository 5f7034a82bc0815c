package main

import "errors"

// ErrUnresolvedTargets is returned by "resolve --strict" when at least one
// target could not be resolved.
var ErrUnresolvedTargets = errors.New("unresolved targets")
