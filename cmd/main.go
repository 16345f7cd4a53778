package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"homecore/internal/config"
	"homecore/internal/host"
	"homecore/internal/plugins/logicbase"
	"homecore/internal/registry"
	"homecore/pkg/plugin"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	settings, err := config.LoadSettings(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(settings.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	logger.Info("Starting Home Automation Core",
		zap.String("modules_dir", settings.ModulesDir),
		zap.String("components_file", settings.ComponentsFile))

	reg, err := buildRegistry(settings, logger)
	if err != nil {
		logger.Fatal("Failed to build plugin registry", zap.Error(err))
	}

	describePlugins(reg, logger)

	manager := host.NewManager(reg, logger)

	if settings.ComponentsFile != "" {
		defs, err := config.NewLoader(settings.ComponentsFile, logger).LoadComponents()
		if err != nil {
			logger.Fatal("Failed to load components", zap.Error(err))
		}
		if err := manager.CreateAll(defs); err != nil {
			logger.Error("Some components could not be created", zap.Error(err))
		}
	}

	for _, id := range manager.Components() {
		logState(manager, id, logger)
		subscribeToChanges(manager, id, logger)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Application running. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-sigChan

	logger.Info("Shutting down gracefully...")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// builtinModules are compiled into the host. A module file of the same name in
// the modules directory takes precedence.
var builtinModules = []registry.StaticModule{
	{Name: logicbase.ModuleName, Declaration: logicbase.Declaration()},
}

// buildRegistry loads the module files found in the modules directory, then
// registers the built-in modules that were not loaded from a file. Modules that
// fail to load are reported and skipped.
func buildRegistry(settings config.Settings, logger *zap.Logger, opts ...registry.Option) (*registry.Registry, error) {
	builder := registry.NewBuilder(logger, opts...)

	if settings.ModulesDir != "" {
		if err := builder.LoadDir(settings.ModulesDir); err != nil {
			logger.Warn("Some modules could not be loaded", zap.Error(err))
		}
	}

	for _, m := range builtinModules {
		if builder.HasModule(m.Name) {
			logger.Info("Module loaded from file, skipping built-in", zap.String("module", m.Name))
			continue
		}
		if err := builder.AddModule(m.Name, m.Declaration); err != nil {
			return nil, err
		}
	}

	return builder.Build()
}

func describePlugins(reg *registry.Registry, logger *zap.Logger) {
	for _, p := range reg.Plugins() {
		logger.Info("Plugin available",
			zap.String("id", p.ID()),
			zap.String("version", p.Version()),
			zap.String("path", p.Module().Path()),
			zap.Object("metadata", p.Metadata()))

		if ce := logger.Check(zap.DebugLevel, "Plugin descriptor"); ce != nil {
			out, err := yaml.Marshal(p.Metadata())
			if err != nil {
				logger.Error("Failed to render plugin descriptor", zap.String("id", p.ID()), zap.Error(err))
				continue
			}
			ce.Write(zap.String("id", p.ID()), zap.String("descriptor", string(out)))
		}
	}
}

func logState(manager *host.Manager, id string, logger *zap.Logger) {
	p, err := manager.Plugin(id)
	if err != nil {
		return
	}
	for _, state := range p.Metadata().States() {
		value, err := manager.GetState(id, state)
		if err != nil {
			logger.Error("Failed to get state",
				zap.String("component", id),
				zap.String("state", state),
				zap.Error(err))
			continue
		}
		logger.Info(fmt.Sprintf("  %s.%s: %s", id, state, value))
	}
}

func subscribeToChanges(manager *host.Manager, id string, logger *zap.Logger) {
	p, err := manager.Plugin(id)
	if err != nil {
		return
	}
	for _, state := range p.Metadata().States() {
		_, err := manager.Subscribe(id, state, func(componentID, state string, oldValue, newValue plugin.Value) {
			logger.Info("State changed",
				zap.String("component", componentID),
				zap.String("state", state),
				zap.Stringer("old", oldValue),
				zap.Stringer("new", newValue))
		})
		if err != nil {
			logger.Error("Failed to subscribe", zap.String("component", id), zap.Error(err))
		}
	}
}
