package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and feeds return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row does not exist
//   - ErrConflict: a unique key is already taken
//   - ErrAlreadyUsed: a one-way transition has already happened
//   - ErrInvalidState: row is in the wrong state for the operation
//   - ErrUnavailable: backing service unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
