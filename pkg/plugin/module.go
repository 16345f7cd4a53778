package plugin

import "runtime"

// Versions a module must have been built against to be loaded. A module built
// with a different toolchain, core library or runtime protocol is rejected.
const (
	CoreVersion    = "0.4.0"
	RuntimeVersion = "1"
)

// ToolchainVersion is the Go release the host was built with.
var ToolchainVersion = runtime.Version()

// DeclarationSymbol is the name of the exported variable every loadable module
// defines:
//
//	var ModuleDeclaration = plugin.DeclareModule("0.1.0", register)
const DeclarationSymbol = "ModuleDeclaration"

// RegisterFunc submits the plugin types of a module.
type RegisterFunc func(r Registrar) error

// ModuleDeclaration is the descriptor read from a module before anything else
// in it is used.
type ModuleDeclaration struct {
	ToolchainVersion string
	CoreVersion      string
	RuntimeVersion   string
	ModuleVersion    string
	Register         RegisterFunc
}

// DeclareModule returns the descriptor of a module built against this core.
func DeclareModule(version string, register RegisterFunc) ModuleDeclaration {
	return ModuleDeclaration{
		ToolchainVersion: ToolchainVersion,
		CoreVersion:      CoreVersion,
		RuntimeVersion:   RuntimeVersion,
		ModuleVersion:    version,
		Register:         register,
	}
}
