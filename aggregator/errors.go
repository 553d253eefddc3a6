package aggregator

import "cosmossdk.io/errors"

// ModuleName scopes this package's registered error codes.
const ModuleName = "aggregator"

var (
	ErrExchangeNotFound      = errors.Register(ModuleName, 2, "exchange %s is not registered")
	ErrExchangeAlreadyExists = errors.Register(ModuleName, 3, "exchange %s is already registered")
)
