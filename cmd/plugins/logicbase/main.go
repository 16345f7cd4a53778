// Command logicbase builds the logic-base module as a loadable file:
//
//	go build -buildmode=plugin -o modules/libplugin_logic_base.so ./cmd/plugins/logicbase
package main

import (
	"homecore/internal/plugins/logicbase"
	"homecore/pkg/plugin"
)

// ModuleDeclaration is read by the host's module loader.
var ModuleDeclaration = plugin.DeclareModule(logicbase.Version, logicbase.Register)

func main() {}
