package bridge

import "cosmossdk.io/errors"

// ModuleName scopes this package's registered error codes.
const ModuleName = "bridge"

var (
	ErrServerAlreadyRunning = errors.Register(ModuleName, 2, "server is already running")
	ErrListenFailed         = errors.Register(ModuleName, 3, "failed to listen on %s: %w")
)
