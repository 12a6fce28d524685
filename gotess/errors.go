package gotess

import "errors"

// Errors
var (
	ErrNoShapes        = errors.New("tiling has no shapes")
	ErrBadShape        = errors.New("shape needs at least 3 edges")
	ErrBadConnection   = errors.New("bad edge connection")
	ErrBadValence      = errors.New("bad vertex valence")
	ErrBadCycleLength  = errors.New("cycle length must divide shape size")
	ErrBadRule         = errors.New("bad rule value in tree-state")
	ErrBadRoot         = errors.New("undefined tree-state as root")
	ErrMultipleParents = errors.New("multiple PARENT entries in tree-state")
	ErrBadStateIndex   = errors.New("undefined tree-state in rules")
	ErrNoRules         = errors.New("rule table is empty")
)
