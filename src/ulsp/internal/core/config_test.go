package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		expectError string
	}{
		{
			name:        "missing meta",
			files:       map[string]string{"base.yaml": "service:\n  name: ulsp-bridge\n"},
			expectError: "loading meta configuration",
		},
		{
			name: "invalid files list",
			files: map[string]string{
				"meta.yaml": "files: base.yaml\n",
			},
			expectError: "reading files list",
		},
		{
			name: "no listed file exists",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n",
			},
			expectError: "no configuration files found",
		},
		{
			name: "malformed file",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n",
				"base.yaml": "service: [\n",
			},
			expectError: "loading configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := loadConfig(writeConfigDir(t, tt.files))
			assert.ErrorContains(t, err, tt.expectError)
			assert.Nil(t, provider)
		})
	}
}

func TestConfigFilePriority(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"meta.yaml":  "files:\n  - base.yaml\n  - development.yaml\n  - local.yaml\n",
		"base.yaml":  "service:\n  name: base-service\nlogging:\n  level: info\nsessions:\n  idleTimeoutMinutes: 0\n",
		"local.yaml": "logging:\n  level: warn\n",
	})

	provider, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "config", provider.Name())

	assert.Equal(t, "base-service", provider.Get("service.name").String())
	assert.Equal(t, "warn", provider.Get("logging.level").String())
	assert.False(t, provider.Get("nonexistent.path").HasValue())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"meta.yaml": "files:\n  - base.yaml\n",
		"base.yaml": "serverInfoFilePath: ${ULSP_BRIDGE_TEST_INFO_FILE:\"\"}\nlogging:\n  level: ${ULSP_BRIDGE_TEST_LOG_LEVEL:info}\n",
	})

	t.Run("defaults", func(t *testing.T) {
		provider, err := loadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "info", provider.Get("logging.level").String())
		assert.Equal(t, "", provider.Get("serverInfoFilePath").String())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("ULSP_BRIDGE_TEST_INFO_FILE", "/tmp/ulsp-bridge/info.json")
		t.Setenv("ULSP_BRIDGE_TEST_LOG_LEVEL", "debug")

		provider, err := loadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "debug", provider.Get("logging.level").String())
		assert.Equal(t, "/tmp/ulsp-bridge/info.json", provider.Get("serverInfoFilePath").String())
	})
}

func TestNewConfig(t *testing.T) {
	t.Setenv(_envConfigDir, writeConfigDir(t, map[string]string{
		"meta.yaml": "files:\n  - base.yaml\n",
		"base.yaml": "service:\n  name: ulsp-bridge\n",
	}))

	provider, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "ulsp-bridge", provider.Get("service.name").String())
}

func TestGetConfigDir(t *testing.T) {
	t.Run("environment variable", func(t *testing.T) {
		t.Setenv(_envConfigDir, "/custom/config/path")
		assert.Equal(t, "/custom/config/path", getConfigDir())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(_envConfigDir, "")
		assert.Equal(t, _defaultConfigDir, getConfigDir())
	})
}
