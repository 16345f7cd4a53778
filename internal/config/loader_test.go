package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"homecore/pkg/plugin"
)

func envLookup(t *testing.T, dotenv string) func(string) (string, bool) {
	env, err := godotenv.Unmarshal(dotenv)
	require.NoError(t, err)
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		dotenv  string
		want    Settings
		wantErr bool
	}{
		{
			name:   "empty environment",
			dotenv: "",
			want:   Settings{},
		},
		{
			name: "all settings",
			dotenv: `MODULES_DIR=/opt/homecore/modules
COMPONENTS_FILE=/etc/homecore/components.yaml
LOG_DEVELOPMENT=true
`,
			want: Settings{
				ModulesDir:     "/opt/homecore/modules",
				ComponentsFile: "/etc/homecore/components.yaml",
				LogDevelopment: true,
			},
		},
		{
			name:    "invalid log flag",
			dotenv:  "LOG_DEVELOPMENT=maybe",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSettings(envLookup(t, tt.dotenv))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_LoadComponents(t *testing.T) {
	content := `components:
  - id: c1
    plugin: logic-base.value-binary
    config:
      config: true
  - id: c2
    plugin: test.mixed
    config:
      label: kitchen
      count: 3
      ratio: 0.5
`
	path := filepath.Join(t.TempDir(), "components.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoader(path, zaptest.NewLogger(t))
	defs, err := loader.LoadComponents()
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "c1", defs[0].ID)
	assert.Equal(t, "logic-base.value-binary", defs[0].Plugin)
	assert.Equal(t, plugin.Config{"config": plugin.BoolConfig(true)}, defs[0].Config)

	assert.Equal(t, plugin.Config{
		"label": plugin.StringConfig("kitchen"),
		"count": plugin.IntegerConfig(3),
		"ratio": plugin.FloatConfig(0.5),
	}, defs[1].Config)
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), zaptest.NewLogger(t))
	_, err := loader.LoadComponents()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read components file")
}

func TestParseComponents_Validation(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains []string
	}{
		{
			name:        "invalid yaml",
			content:     "components: [",
			errContains: []string{"failed to parse components file"},
		},
		{
			name: "missing id and plugin",
			content: `components:
  - plugin: a.b
  - id: c2
`,
			errContains: []string{"component #0: id is required", "component 'c2': plugin is required"},
		},
		{
			name: "duplicate id",
			content: `components:
  - id: c1
    plugin: a.b
  - id: c1
    plugin: a.b
`,
			errContains: []string{"component 'c1': duplicate id"},
		},
		{
			name: "non scalar config value",
			content: `components:
  - id: c1
    plugin: a.b
    config:
      config: [1, 2]
`,
			errContains: []string{"config value must be a scalar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComponents([]byte(tt.content))
			require.Error(t, err)
			for _, want := range tt.errContains {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestParseComponents_Empty(t *testing.T) {
	defs, err := ParseComponents([]byte("components: []\n"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}
