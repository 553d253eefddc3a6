package session

import "cosmossdk.io/errors"

// ModuleName scopes this package's registered error codes.
const ModuleName = "session"

var (
	ErrInvalidTransition = errors.Register(ModuleName, 2, "invalid transition from %s on %s")
	ErrFrameTooLarge     = errors.Register(ModuleName, 3, "frame of %d bytes exceeds max reassembly buffer of %d bytes")
)
