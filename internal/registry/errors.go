package registry

import (
	"errors"
	"fmt"
)

var (
	ErrToolchainVersionMismatch = errors.New("toolchain version mismatch")
	ErrCoreVersionMismatch      = errors.New("core version mismatch")
	ErrRuntimeVersionMismatch   = errors.New("runtime version mismatch")

	ErrSymbolNotFound     = errors.New("module declaration not found")
	ErrInvalidDeclaration = errors.New("invalid module declaration")
	ErrInvalidVersion     = errors.New("invalid module version")
	ErrRegisterFailed     = errors.New("module registration failed")

	ErrDuplicatePlugin = errors.New("duplicate plugin id")
	ErrDuplicateModule = errors.New("duplicate module")
	ErrAlreadyBuilt    = errors.New("registry already built")
)

// VersionMismatchError reports a module built against a different toolchain,
// core library or runtime protocol than the host.
type VersionMismatchError struct {
	Module   string
	Expected string
	Actual   string
	// Kind is one of ErrToolchainVersionMismatch, ErrCoreVersionMismatch or
	// ErrRuntimeVersionMismatch.
	Kind error
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("module '%s': %v (expected %q, got %q)", e.Module, e.Kind, e.Expected, e.Actual)
}

func (e *VersionMismatchError) Unwrap() error { return e.Kind }

// LoadError reports a module that could not be loaded. Loading continues with
// the next module.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading module %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
