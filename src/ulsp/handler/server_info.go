package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile"
	"go.uber.org/config"
)

const (
	_fmtInfoFileKey = "%s-%s"

	_configKeyServers  = "languageServers.servers"
	_infoFileKeyPrefix = "languageServer"
)

// Output the configured language server command lines so a running bridge can be inspected.
// Servers configured only through the environment are resolved per call and are not listed.
func outputLanguageServerInfo(cfg config.Provider, infofile serverinfofile.ServerInfoFile) error {
	var servers map[string]entity.ServerInvocation
	if err := cfg.Get(_configKeyServers).Populate(&servers); err != nil {
		return fmt.Errorf("loading language server config: %w", err)
	}

	languages := make([]string, 0, len(servers))
	for language := range servers {
		languages = append(languages, language)
	}
	sort.Strings(languages)

	for _, language := range languages {
		invocation := servers[language]
		if invocation.IsZero() {
			continue
		}
		commandLine := strings.Join(append([]string{invocation.Command}, invocation.Args...), " ")
		if err := infofile.UpdateField(fmt.Sprintf(_fmtInfoFileKey, _infoFileKeyPrefix, language), commandLine); err != nil {
			return fmt.Errorf("outputting %q command to info file: %w", language, err)
		}
	}

	return nil
}
