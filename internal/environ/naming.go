package environ

import "strings"

// DefaultPrefix is prepended to every file key outside the no-prefix list.
const DefaultPrefix = "DJANGO_"

var defaultNoPrefixKeys = []string{
	"DEBUG",
	"PROJECT_NAME",
	"BASE_DIR",
	"DATABASE_URL",
	"MEMCACHED_URL",
	"REDIS_URL",
}

// DefaultNoPrefixKeys returns a copy of the keys exempt from prefixing.
func DefaultNoPrefixKeys() []string {
	out := make([]string, len(defaultNoPrefixKeys))
	copy(out, defaultNoPrefixKeys)
	return out
}

// Naming describes how environment keys map onto settings names.
type Naming struct {
	Prefix   string
	NoPrefix []string
}

// DefaultNaming returns the stock convention.
func DefaultNaming() Naming {
	return Naming{
		Prefix:   DefaultPrefix,
		NoPrefix: DefaultNoPrefixKeys(),
	}
}

// IsNoPrefix reports whether key is on the allowlist.
func (n Naming) IsNoPrefix(key string) bool {
	for _, k := range n.NoPrefix {
		if k == key {
			return true
		}
	}
	return false
}

// Qualify returns the process-environment form of a file key.
func (n Naming) Qualify(key string) string {
	if n.IsNoPrefix(key) {
		return key
	}
	return n.Prefix + key
}

// SettingName returns the settings name for an environment key and whether
// the key participates in settings at all.
func (n Naming) SettingName(key string) (string, bool) {
	if n.IsNoPrefix(key) {
		return key, true
	}
	if n.Prefix != "" && strings.HasPrefix(key, n.Prefix) {
		name := strings.TrimPrefix(key, n.Prefix)
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}
