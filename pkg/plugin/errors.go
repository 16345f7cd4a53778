package plugin

import (
	"errors"
	"fmt"
)

// Validation errors returned to callers of the plugin runtime.
var (
	ErrInvalidType        = errors.New("invalid value type")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrValueMismatch      = errors.New("value mismatch")
	ErrConfigTypeMismatch = errors.New("config type mismatch")

	ErrConfigNotSet = errors.New("config key not set")
	ErrNoSuchState  = errors.New("no such state")
	ErrNoSuchAction = errors.New("no such action")

	ErrNameNotSet    = errors.New("plugin name not set")
	ErrUsageNotSet   = errors.New("plugin usage not set")
	ErrFactoryNotSet = errors.New("plugin factory not set")

	ErrAlreadyConfigured  = errors.New("component already configured")
	ErrNotConfigured      = errors.New("component not configured")
	ErrAlreadyInitialized = errors.New("component already initialized")
)

// ContractViolationError is the panic value raised when a plugin type disagrees
// with its own declaration. It is only reachable from a misbuilt plugin type.
type ContractViolationError struct {
	Message string
}

func (e *ContractViolationError) Error() string {
	return "plugin contract violation: " + e.Message
}

func contractViolation(format string, args ...any) *ContractViolationError {
	return &ContractViolationError{Message: fmt.Sprintf(format, args...)}
}
