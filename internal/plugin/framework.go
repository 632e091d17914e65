package plugin

import (
	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

// Framework copies allow-listed and prefixed variables into settings, with
// the prefix stripped and values coerced.
func Framework(naming environ.Naming) Func {
	return func(env environ.Environment, s settings.Settings) error {
		for key, raw := range env {
			name, ok := naming.SettingName(key)
			if !ok {
				continue
			}
			s[name] = settings.Coerce(raw)
		}
		return nil
	}
}
