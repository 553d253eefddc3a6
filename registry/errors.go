package registry

import "cosmossdk.io/errors"

// ModuleName scopes this package's registered error codes.
const ModuleName = "registry"

var (
	ErrSymbolConflict  = errors.Register(ModuleName, 2, "symbol %s already registered with a different numeric id")
	ErrSymbolNotFound  = errors.Register(ModuleName, 3, "symbol %s not found in registry")
	ErrNumericIDNotFound = errors.Register(ModuleName, 4, "numeric id %d not found in registry")
	ErrSessionIDsExhausted = errors.Register(ModuleName, 5, "session symbol id space exhausted")
)
