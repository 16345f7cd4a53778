package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"homecore/pkg/plugin"
)

// StaticModule is a module compiled into the host.
type StaticModule struct {
	Name        string
	Declaration plugin.ModuleDeclaration
}

// Builder assembles a Registry. It is not safe for concurrent use, and Build
// may be called once.
type Builder struct {
	logger  *zap.Logger
	open    OpenFunc
	modules map[string]*Module
	plugins map[string]*Plugin
	fatal   error
	built   bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithOpener replaces the function used to open module files.
func WithOpener(open OpenFunc) Option {
	return func(b *Builder) { b.open = open }
}

// NewBuilder creates an empty registry builder.
func NewBuilder(logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		logger:  logger.Named("registry"),
		open:    OpenPlugin,
		modules: make(map[string]*Module),
		plugins: make(map[string]*Plugin),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildFrom builds a registry from an ordered list of built-in modules.
func BuildFrom(logger *zap.Logger, modules ...StaticModule) (*Registry, error) {
	b := NewBuilder(logger)
	var errs error
	for _, m := range modules {
		errs = multierr.Append(errs, b.AddModule(m.Name, m.Declaration))
	}
	r, err := b.Build()
	if err != nil {
		return nil, err
	}
	if errs != nil {
		return nil, errs
	}
	return r, nil
}

// AddModule registers a built-in module.
func (b *Builder) AddModule(name string, decl plugin.ModuleDeclaration) error {
	if b.built {
		return ErrAlreadyBuilt
	}
	return b.addModule(plugin.ModuleName(name), "", nil, &decl)
}

// HasModule reports whether a module with that name was registered.
func (b *Builder) HasModule(name string) bool {
	_, ok := b.modules[plugin.ModuleName(name)]
	return ok
}

// LoadDir loads every module file found in dir. Modules that fail to load are
// skipped and their errors returned together; a duplicate plugin id stops
// loading and makes Build fail.
func (b *Builder) LoadDir(dir string) error {
	if b.built {
		return ErrAlreadyBuilt
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading modules directory: %w", err)
	}

	var errs error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := ModuleFileName(entry.Name())
		if !ok {
			b.logger.Debug("Skipping file, not a module", zap.String("file", entry.Name()))
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := b.load(name, path); err != nil {
			b.logger.Error("Failed to load module",
				zap.String("module", name),
				zap.String("path", path),
				zap.Error(err))
			errs = multierr.Append(errs, &LoadError{Path: path, Err: err})
			if b.fatal != nil {
				break
			}
		}
	}
	return errs
}

// Load loads one module file.
func (b *Builder) Load(path string) error {
	if b.built {
		return ErrAlreadyBuilt
	}
	name, ok := ModuleFileName(filepath.Base(path))
	if !ok {
		return &LoadError{Path: path, Err: fmt.Errorf("file name does not match %s", moduleFilePattern)}
	}
	if err := b.load(name, path); err != nil {
		return &LoadError{Path: path, Err: err}
	}
	return nil
}

func (b *Builder) load(name, path string) error {
	b.logger.Debug("Loading module", zap.String("module", name), zap.String("path", path))

	lib, err := b.open(path)
	if err != nil {
		return err
	}
	decl, err := readDeclaration(lib)
	if err != nil {
		return err
	}
	return b.addModule(name, path, lib, decl)
}

func (b *Builder) addModule(name, path string, lib Library, decl *plugin.ModuleDeclaration) error {
	if b.fatal != nil {
		return b.fatal
	}

	version, err := checkCompatibility(name, decl)
	if err != nil {
		return err
	}

	runtimes, err := register(name, decl)
	if err != nil {
		return err
	}

	module := &Module{name: name, version: version.String(), path: path, lib: lib}
	staged := make(map[string]*Plugin, len(runtimes))
	for _, rt := range runtimes {
		if rt == nil {
			return fmt.Errorf("module '%s': %w: nil runtime", name, ErrRegisterFailed)
		}
		meta := rt.Metadata()
		if meta.Module() != "" && meta.Module() != name {
			b.logger.Warn("Plugin declares a different module",
				zap.String("module", name),
				zap.String("declared", meta.Module()),
				zap.String("plugin", meta.Name()))
		}

		id := name + "." + meta.Name()
		_, dupStaged := staged[id]
		if _, dup := b.plugins[id]; dup || dupStaged {
			b.fatal = fmt.Errorf("%w: '%s'", ErrDuplicatePlugin, id)
			return b.fatal
		}
		staged[id] = &Plugin{id: id, runtime: rt, module: module}
	}

	if _, exists := b.modules[name]; exists {
		b.fatal = fmt.Errorf("%w: '%s'", ErrDuplicateModule, name)
		return b.fatal
	}

	for id, p := range staged {
		b.plugins[id] = p
		module.plugins = append(module.plugins, p)
	}
	slices.SortFunc(module.plugins, func(x, y *Plugin) int { return strings.Compare(x.id, y.id) })
	b.modules[name] = module

	b.logger.Debug("Module registered",
		zap.String("module", name),
		zap.String("version", module.version),
		zap.Int("plugins", len(module.plugins)))
	return nil
}

// Build returns the registry. It fails if a duplicate plugin id or module was
// registered, in which case no registry is produced.
func (b *Builder) Build() (*Registry, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true

	if b.fatal != nil {
		return nil, b.fatal
	}

	r := &Registry{plugins: b.plugins, modules: b.modules}
	b.plugins, b.modules = nil, nil

	b.logger.Info("Registry built",
		zap.Int("modules", len(r.modules)),
		zap.Int("plugins", len(r.plugins)))
	return r, nil
}
