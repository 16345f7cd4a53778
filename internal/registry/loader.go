package registry

import (
	"fmt"
	goplugin "plugin"
	"regexp"
	"runtime"

	"github.com/coreos/go-semver/semver"

	"homecore/pkg/plugin"
)

// Library is an opened module file.
type Library interface {
	Lookup(symbol string) (any, error)
}

// OpenFunc opens a module file.
type OpenFunc func(path string) (Library, error)

// OpenPlugin opens a module built with -buildmode=plugin.
func OpenPlugin(path string) (Library, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return goLibrary{p: p}, nil
}

type goLibrary struct {
	p *goplugin.Plugin
}

func (l goLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// libraryAffixes returns the platform's shared library naming convention.
func libraryAffixes(goos string) (prefix, suffix string) {
	switch goos {
	case "darwin":
		return "lib", ".dylib"
	case "windows":
		return "", ".dll"
	default:
		return "lib", ".so"
	}
}

var moduleFilePattern = compileModulePattern(runtime.GOOS)

func compileModulePattern(goos string) *regexp.Regexp {
	prefix, suffix := libraryAffixes(goos)
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `plugin_(\w+)` + regexp.QuoteMeta(suffix) + `$`)
}

// ModuleFileName returns the module name encoded in a module file name:
// "libplugin_logic_base.so" yields "logic-base".
func ModuleFileName(filename string) (string, bool) {
	m := moduleFilePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return plugin.ModuleName(m[1]), true
}

// readDeclaration reads the module descriptor. Nothing else in the library is
// touched until the descriptor passes checkCompatibility.
func readDeclaration(lib Library) (*plugin.ModuleDeclaration, error) {
	sym, err := lib.Lookup(plugin.DeclarationSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSymbolNotFound, err)
	}

	switch decl := sym.(type) {
	case *plugin.ModuleDeclaration:
		if decl == nil {
			return nil, fmt.Errorf("%w: nil declaration", ErrInvalidDeclaration)
		}
		return decl, nil
	case **plugin.ModuleDeclaration:
		if decl == nil || *decl == nil {
			return nil, fmt.Errorf("%w: nil declaration", ErrInvalidDeclaration)
		}
		return *decl, nil
	default:
		return nil, fmt.Errorf("%w: symbol %s has type %T", ErrInvalidDeclaration, plugin.DeclarationSymbol, sym)
	}
}

// checkCompatibility requires the toolchain, core and runtime versions of a
// module to equal the host's, in that order, and its own version to be valid
// semver.
func checkCompatibility(module string, decl *plugin.ModuleDeclaration) (*semver.Version, error) {
	checks := []struct {
		expected string
		actual   string
		kind     error
	}{
		{plugin.ToolchainVersion, decl.ToolchainVersion, ErrToolchainVersionMismatch},
		{plugin.CoreVersion, decl.CoreVersion, ErrCoreVersionMismatch},
		{plugin.RuntimeVersion, decl.RuntimeVersion, ErrRuntimeVersionMismatch},
	}
	for _, c := range checks {
		if c.expected != c.actual {
			return nil, &VersionMismatchError{Module: module, Expected: c.expected, Actual: c.actual, Kind: c.kind}
		}
	}

	version, err := semver.NewVersion(decl.ModuleVersion)
	if err != nil {
		return nil, fmt.Errorf("module '%s': %w %q: %v", module, ErrInvalidVersion, decl.ModuleVersion, err)
	}
	if decl.Register == nil {
		return nil, fmt.Errorf("module '%s': %w: register function is nil", module, ErrInvalidDeclaration)
	}
	return version, nil
}

// stagingRegistrar collects the runtimes submitted by one module.
type stagingRegistrar struct {
	runtimes []plugin.Runtime
}

func (s *stagingRegistrar) Register(runtime plugin.Runtime) {
	s.runtimes = append(s.runtimes, runtime)
}

// register runs the module's register function, turning a panic into an error.
// Contract violations are not recovered: they come from a misbuilt plugin type.
func register(module string, decl *plugin.ModuleDeclaration) (runtimes []plugin.Runtime, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*plugin.ContractViolationError); ok {
				panic(r)
			}
			err = fmt.Errorf("module '%s': %w: panic: %v", module, ErrRegisterFailed, r)
		}
	}()

	staging := &stagingRegistrar{}
	if err := decl.Register(staging); err != nil {
		return nil, fmt.Errorf("module '%s': %w: %w", module, ErrRegisterFailed, err)
	}
	return staging.runtimes, nil
}
