package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/eugenenazirov/autosettings/internal/settings"
)

var (
	// ErrAlreadyConfigured indicates Configure was called more than once.
	ErrAlreadyConfigured = errors.New("settings already configured")
	// ErrNotConfigured indicates settings were read before Configure.
	ErrNotConfigured = errors.New("settings are not configured")
)

// Storage provides access to the applied framework settings.
type Storage interface {
	Configure(s settings.Settings) error
	Settings() (settings.Settings, error)
	Value(name string) (any, bool, error)
	ConfiguredAt() time.Time
}

// MemoryStorage keeps applied settings in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu           sync.RWMutex
	settings     settings.Settings
	configuredAt time.Time
	clock        func() time.Time
}

// NewMemoryStorage initialises an unconfigured store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Configure stores a deep copy of s. It can succeed only once.
func (m *MemoryStorage) Configure(s settings.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings != nil {
		return ErrAlreadyConfigured
	}
	if s == nil {
		s = settings.New()
	}
	m.settings = s.Clone()
	m.configuredAt = m.clock()
	return nil
}

// Settings returns a deep copy of the applied settings.
func (m *MemoryStorage) Settings() (settings.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, ErrNotConfigured
	}
	return m.settings.Clone(), nil
}

// Value returns a copy of a single setting.
func (m *MemoryStorage) Value(name string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, false, ErrNotConfigured
	}
	v, ok := m.settings[name]
	return settings.CloneValue(v), ok, nil
}

// ConfiguredAt reports when Configure succeeded; zero before that.
func (m *MemoryStorage) ConfiguredAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configuredAt
}
