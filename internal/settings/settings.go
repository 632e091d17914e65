package settings

import (
	"sort"
	"strconv"
	"unicode"
)

// BaseDirKey holds the resolved project root.
const BaseDirKey = "BASE_DIR"

// ProjectNameKey selects the project whose settings file is overlaid.
const ProjectNameKey = "PROJECT_NAME"

// Settings is the accumulated configuration mapping.
type Settings map[string]any

// New returns an empty mapping.
func New() Settings {
	return Settings{}
}

// String returns the value stored under key when it is a non-empty string.
func (s Settings) String(key string) (string, bool) {
	v, ok := s[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Keys returns the keys in lexical order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy. Nested maps and slices are copied, scalars are
// shared.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = CloneValue(v)
	}
	return out
}

// Merge copies every entry of src into s, replacing existing keys.
func (s Settings) Merge(src Settings) {
	for k, v := range src {
		s[k] = v
	}
}

// CloneValue deep-copies maps and slices produced by the pipeline.
func CloneValue(v any) any {
	switch typed := v.(type) {
	case Settings:
		return typed.Clone()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, inner := range typed {
			out[k] = CloneValue(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, inner := range typed {
			out[k] = inner
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = CloneValue(inner)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return v
	}
}

// IsName reports whether name counts as a settings name: it contains at
// least one cased letter and no lowercase letters. Digits and underscores
// are allowed anywhere.
func IsName(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// Coerce converts an environment string into its natural settings value:
// "True" and "False" become booleans, ASCII digit strings become ints.
// Anything else, including digit strings that overflow int, is returned
// unchanged.
func Coerce(raw string) any {
	switch raw {
	case "True":
		return true
	case "False":
		return false
	}
	if !isDigits(raw) {
		return raw
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return raw
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
