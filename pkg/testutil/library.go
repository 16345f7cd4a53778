package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"homecore/internal/registry"
	"homecore/pkg/plugin"
)

// FakeLibrary stands in for a module file opened by the registry loader.
type FakeLibrary struct {
	Symbols map[string]any
}

// NewFakeLibrary returns a library exporting decl under the declaration symbol.
func NewFakeLibrary(decl plugin.ModuleDeclaration) *FakeLibrary {
	return &FakeLibrary{Symbols: map[string]any{plugin.DeclarationSymbol: &decl}}
}

func (l *FakeLibrary) Lookup(symbol string) (any, error) {
	sym, ok := l.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

// FakeModules maps module file names to fake libraries and records which
// files were opened.
type FakeModules struct {
	mu        sync.Mutex
	libraries map[string]*FakeLibrary
	opened    []string
}

func NewFakeModules() *FakeModules {
	return &FakeModules{libraries: make(map[string]*FakeLibrary)}
}

// Add makes filename openable, returning lib.
func (m *FakeModules) Add(filename string, lib *FakeLibrary) *FakeLibrary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.libraries[filename] = lib
	return lib
}

// Open is a registry.OpenFunc serving the fake libraries.
func (m *FakeModules) Open(path string) (registry.Library, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opened = append(m.opened, filepath.Base(path))
	lib, ok := m.libraries[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: not a module", path)
	}
	return lib, nil
}

// Opened returns the base names of the files opened so far.
func (m *FakeModules) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

// WriteFiles creates empty files named after every fake module, plus extra,
// inside dir.
func (m *FakeModules) WriteFiles(dir string, extra ...string) error {
	m.mu.Lock()
	names := make([]string, 0, len(m.libraries)+len(extra))
	for name := range m.libraries {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range append(names, extra...) {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}
