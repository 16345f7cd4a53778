package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"homecore/pkg/plugin"
)

// Settings are the process settings read from the environment.
type Settings struct {
	// ModulesDir is scanned for module files. Empty disables dynamic loading.
	ModulesDir string
	// ComponentsFile lists the components to create at startup.
	ComponentsFile string
	// LogDevelopment selects the development logger.
	LogDevelopment bool
}

// LoadSettings reads the settings through lookup, typically os.LookupEnv.
func LoadSettings(lookup func(key string) (string, bool)) (Settings, error) {
	var s Settings
	s.ModulesDir, _ = lookup("MODULES_DIR")
	s.ComponentsFile, _ = lookup("COMPONENTS_FILE")

	if raw, ok := lookup("LOG_DEVELOPMENT"); ok && raw != "" {
		dev, err := strconv.ParseBool(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid LOG_DEVELOPMENT %q: %w", raw, err)
		}
		s.LogDevelopment = dev
	}
	return s, nil
}

// ComponentDefinition describes one component to create.
type ComponentDefinition struct {
	ID     string        `yaml:"id"`
	Plugin string        `yaml:"plugin"`
	Config plugin.Config `yaml:"config"`
}

// ComponentsConfig represents the components file structure
type ComponentsConfig struct {
	Components []ComponentDefinition `yaml:"components"`
}

// Loader reads the components file
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader creates a new components file loader
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger,
	}
}

// LoadComponents reads and validates the component definitions
func (l *Loader) LoadComponents() ([]ComponentDefinition, error) {
	l.logger.Debug("Loading components", zap.String("path", l.path))

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read components file: %w", err)
	}

	defs, err := ParseComponents(data)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Components loaded successfully",
		zap.String("path", l.path),
		zap.Int("count", len(defs)))
	return defs, nil
}

// ParseComponents decodes a components document and validates every entry.
func ParseComponents(data []byte) ([]ComponentDefinition, error) {
	var config ComponentsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse components file: %w", err)
	}

	var errs error
	seen := make(map[string]struct{}, len(config.Components))
	for i, def := range config.Components {
		if def.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("component #%d: id is required", i))
			continue
		}
		if def.Plugin == "" {
			errs = multierr.Append(errs, fmt.Errorf("component '%s': plugin is required", def.ID))
		}
		if _, dup := seen[def.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("component '%s': duplicate id", def.ID))
		}
		seen[def.ID] = struct{}{}
	}
	if errs != nil {
		return nil, errs
	}

	return config.Components, nil
}
