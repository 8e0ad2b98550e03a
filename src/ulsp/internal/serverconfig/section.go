package serverconfig

import "strings"

// Section resolves a dotted configuration section against settings, as requested by workspace/configuration.
// An empty section returns the settings themselves. Unknown sections resolve to nil.
func Section(settings map[string]interface{}, section string) interface{} {
	if section == "" {
		if settings == nil {
			return nil
		}
		return settings
	}

	var current interface{} = settings
	for _, part := range strings.Split(section, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}
