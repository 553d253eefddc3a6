package auth

import "cosmossdk.io/errors"

// ModuleName scopes this package's registered error codes.
const ModuleName = "auth"

var (
	ErrInvalidCredentials = errors.Register(ModuleName, 2, "invalid CDP credentials: %s")
	ErrLoadCredentials    = errors.Register(ModuleName, 3, "failed to load CDP credentials: %w")
	ErrParsePrivateKey    = errors.Register(ModuleName, 4, "failed to parse CDP private key: %w")
	ErrSignToken          = errors.Register(ModuleName, 5, "failed to sign JWT: %w")
)
