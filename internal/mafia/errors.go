package mafia

import "errors"

// Validation and lifecycle errors. Callers match these with errors.Is; a
// rejected submission never mutates the match it was aimed at.
var (
	ErrInvalidSettings = errors.New("invalid match settings")
	ErrNotFound        = errors.New("not found")
	ErrWrongPhase      = errors.New("wrong phase for this action")
	ErrActorDead       = errors.New("actor is dead")
	ErrRoleMismatch    = errors.New("role cannot perform this action")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrPersistence     = errors.New("persistence failure")
)
