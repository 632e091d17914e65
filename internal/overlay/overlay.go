package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

var (
	// ErrSettingsNotFound is returned when no settings file exists for a module.
	ErrSettingsNotFound = errors.New("project settings file not found")
	// ErrMissingBaseDir is returned when BASE_DIR is absent from settings.
	ErrMissingBaseDir = errors.New("BASE_DIR is not set")
)

// Extensions are tried in order when resolving a module to a file.
var Extensions = []string{".hcl", ".yaml", ".yml"}

// Loader resolves and loads project settings files.
type Loader struct {
	env    environ.Environment
	logger *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvironment exposes env to settings files through the env() function.
func WithEnvironment(env environ.Environment) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		env:    environ.Environment{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ModuleName returns the settings module of a project.
func ModuleName(project string) string {
	return project + ".settings"
}

// Resolve maps a dotted module name onto an existing file under baseDir.
func Resolve(baseDir, module string) (string, error) {
	parts := strings.Split(module, ".")
	stem := filepath.Join(append([]string{baseDir}, parts...)...)

	for _, ext := range Extensions {
		candidate := stem + ext
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w: %s (looked for %s.{hcl,yaml,yml})", ErrSettingsNotFound, module, stem)
}

// Apply loads module relative to s[BASE_DIR] and merges the result into s.
func (l *Loader) Apply(module string, s settings.Settings) error {
	baseDir, ok := s.String(settings.BaseDirKey)
	if !ok {
		return ErrMissingBaseDir
	}

	path, err := Resolve(baseDir, module)
	if err != nil {
		return err
	}

	loaded, err := l.LoadFile(path, s)
	if err != nil {
		return err
	}
	s.Merge(loaded)

	l.logger.Debug("project settings applied",
		zap.String("module", module),
		zap.String("path", path),
		zap.Strings("keys", loaded.Keys()),
	)
	return nil
}

// LoadFile reads a settings file and returns its uppercase names. seed is
// visible to HCL expressions and is not modified.
func (l *Loader) LoadFile(path string, seed settings.Settings) (settings.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project settings: %w", err)
	}

	var bindings settings.Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		bindings, err = evalHCL(data, path, seed, l.env)
	case ".yaml", ".yml":
		bindings, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported settings file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load project settings %s: %w", path, err)
	}

	out := settings.New()
	for k, v := range bindings {
		if settings.IsName(k) {
			out[k] = v
		}
	}
	return out, nil
}
