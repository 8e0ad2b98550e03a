package core

import (
	"fmt"
	"os"
	"path/filepath"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
)

const (
	_envConfigDir     = "ULSP_BRIDGE_CONFIG_DIR"
	_defaultConfigDir = "src/ulsp/config"
	_metaFile         = "meta.yaml"
)

var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

// Config is the layered YAML configuration of the bridge.
type Config struct {
	provider uber_config.Provider
}

func (c Config) Get(path string) uber_config.Value {
	return c.provider.Get(path)
}

func (c Config) Name() string {
	return "config"
}

// NewConfig loads the files listed in meta.yaml from the configuration directory.
// Later files override earlier ones, missing files are skipped, and ${VAR:default} references are expanded from the environment.
func NewConfig() (uber_config.Provider, error) {
	return loadConfig(getConfigDir())
}

func loadConfig(configDir string) (uber_config.Provider, error) {
	meta, err := uber_config.NewYAML(
		uber_config.File(filepath.Join(configDir, _metaFile)),
		uber_config.Expand(os.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("loading meta configuration: %w", err)
	}

	var files []string
	if err := meta.Get("files").Populate(&files); err != nil {
		return nil, fmt.Errorf("reading files list from %s: %w", _metaFile, err)
	}

	options := make([]uber_config.YAMLOption, 0, len(files)+1)
	for _, file := range files {
		fullPath := filepath.Join(configDir, file)
		if _, err := os.Stat(fullPath); err != nil {
			continue
		}
		options = append(options, uber_config.File(fullPath))
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", configDir)
	}
	options = append(options, uber_config.Expand(os.LookupEnv))

	provider, err := uber_config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return Config{provider: provider}, nil
}

// getConfigDir defaults to the directory relative to the repository root.
func getConfigDir() string {
	if configDir := os.Getenv(_envConfigDir); configDir != "" {
		return configDir
	}
	return _defaultConfigDir
}
