package overlay

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/autosettings/internal/settings"
)

func decodeYAML(data []byte) (settings.Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	out := make(settings.Settings, len(raw))
	for k, v := range raw {
		out[k] = normalizeYAML(v)
	}
	return out, nil
}

// normalizeYAML rewrites maps with non-string keys so every nested mapping
// is a map[string]any.
func normalizeYAML(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		for k, inner := range typed {
			typed[k] = normalizeYAML(inner)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, inner := range typed {
			out[fmt.Sprint(k)] = normalizeYAML(inner)
		}
		return out
	case []any:
		for i, inner := range typed {
			typed[i] = normalizeYAML(inner)
		}
		return typed
	default:
		return v
	}
}
