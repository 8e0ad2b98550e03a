// Package serverconfig resolves how to start and configure the language server for a language.
package serverconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:generate mockgen -source=server_config.go -destination=serverconfigmock/server_config_mock.go -package=serverconfigmock

const (
	_configKey        = "languageServers"
	_defaultEnvPrefix = "LSP_SERVER_"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Source looks up per-language language server configuration.
type Source interface {
	// Invocation returns the command line for the language, or false when none is configured.
	Invocation(languageID string) (entity.ServerInvocation, bool)
	// Settings returns the default settings pushed to the language's server, keyed by configuration section.
	Settings(languageID string) map[string]interface{}
}

// Params define values to be used by Source.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
}

type languageServersConfig struct {
	EnvPrefix string                             `yaml:"envPrefix"`
	Servers   map[string]entity.ServerInvocation `yaml:"servers"`
	Settings  map[string]interface{}             `yaml:"settings"`
}

type source struct {
	logger    *zap.SugaredLogger
	lookupEnv func(string) (string, bool)
	envPrefix string
	servers   map[string]entity.ServerInvocation
	settings  map[string]map[string]interface{}
}

// New creates a Source from the languageServers config block and the process environment.
func New(p Params) (Source, error) {
	s := &source{
		logger:    p.Logger,
		lookupEnv: os.LookupEnv,
		envPrefix: _defaultEnvPrefix,
		servers:   make(map[string]entity.ServerInvocation),
		settings:  defaultSettings(),
	}

	if err := s.processConfig(p.Config); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *source) Invocation(languageID string) (entity.ServerInvocation, bool) {
	for _, key := range envKeys(languageID) {
		value, ok := s.lookupEnv(s.envPrefix + key)
		if !ok {
			continue
		}
		invocation, err := parseInvocation(value)
		if err != nil {
			s.logger.Warnw("ignoring malformed language server configuration", "language", languageID, "variable", s.envPrefix+key, "error", err)
			return entity.ServerInvocation{}, false
		}
		return invocation, true
	}

	invocation, ok := s.servers[EnvKey(languageID)]
	if !ok || invocation.IsZero() {
		return entity.ServerInvocation{}, false
	}
	return invocation, true
}

func (s *source) Settings(languageID string) map[string]interface{} {
	settings, ok := s.settings[languageID]
	if !ok {
		return nil
	}
	return map[string]interface{}{languageID: settings}
}

func (s *source) processConfig(cfg config.Provider) error {
	var c languageServersConfig
	if err := cfg.Get(_configKey).Populate(&c); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	if c.EnvPrefix != "" {
		s.envPrefix = c.EnvPrefix
	}
	for language, invocation := range c.Servers {
		s.servers[EnvKey(language)] = invocation
	}
	for language, value := range c.Settings {
		settings, ok := normalize(value).(map[string]interface{})
		if !ok {
			return fmt.Errorf("settings for %q must be a mapping", language)
		}
		s.settings[language] = settings
	}
	return nil
}

// EnvKey maps a language identifier to the upper case key its configuration is stored under.
func EnvKey(languageID string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(languageID))
}

// envKeys lists the variable suffixes checked for a language, the plain upper case identifier first.
// Shells cannot export names containing "-" or ".", so the separator mapped form follows.
func envKeys(languageID string) []string {
	plain := strings.ToUpper(languageID)
	if mapped := EnvKey(languageID); mapped != plain {
		return []string{plain, mapped}
	}
	return []string{plain}
}

// parseInvocation reads a YAML or JSON document of the form {command, args}.
func parseInvocation(value string) (entity.ServerInvocation, error) {
	var invocation entity.ServerInvocation
	if err := yaml.Unmarshal([]byte(value), &invocation); err != nil {
		return entity.ServerInvocation{}, err
	}
	if invocation.IsZero() {
		return entity.ServerInvocation{}, fmt.Errorf("missing command")
	}
	return invocation, nil
}

// normalize converts YAML mappings with interface keys so settings can be encoded as JSON.
func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func defaultSettings() map[string]map[string]interface{} {
	script := func() map[string]interface{} {
		return map[string]interface{}{
			"format":   map[string]interface{}{"enable": true},
			"suggest":  map[string]interface{}{"enabled": true, "completeFunctionCalls": true},
			"validate": map[string]interface{}{"enable": true},
		}
	}
	return map[string]map[string]interface{}{
		"typescript": script(),
		"javascript": script(),
		"json": {
			"format":   map[string]interface{}{"enable": true},
			"validate": map[string]interface{}{"enable": true},
		},
		"yaml": {
			"format":     map[string]interface{}{"enable": true},
			"validate":   true,
			"completion": true,
			"hover":      true,
		},
	}
}
