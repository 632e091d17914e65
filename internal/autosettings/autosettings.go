package autosettings

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/overlay"
	"github.com/eugenenazirov/autosettings/internal/plugin"
	"github.com/eugenenazirov/autosettings/internal/settings"
	"github.com/eugenenazirov/autosettings/internal/storage"
)

// ApplyFunc receives the final settings.
type ApplyFunc func(s settings.Settings) error

// Result describes a completed run. Each Config call returns its own copy
// of the mappings.
type Result struct {
	ProjectRoot string
	Env         environ.Environment
	Settings    settings.Settings
	// Reused is set when Config returned an earlier run without applying again.
	Reused bool
}

// Configurator owns the "already configured" state of one pipeline.
type Configurator struct {
	mu     sync.Mutex
	loaded bool
	result Result

	logger        *zap.Logger
	store         *storage.MemoryStorage
	apply         ApplyFunc
	entryFile     string
	nestedEntries []string
	envPath       string
	resolveOpts   environ.ResolveOptions
	plugins       *plugin.Registry
	getwd         func() (string, error)
}

// Option configures a Configurator.
type Option func(*Configurator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Configurator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithApply replaces the default apply step, which configures the
// Configurator's own store.
func WithApply(fn ApplyFunc) Option {
	return func(c *Configurator) {
		c.apply = fn
	}
}

// WithEntryFile derives the project root from the process entry file when
// Config is called without an explicit root.
func WithEntryFile(path string, nested ...string) Option {
	return func(c *Configurator) {
		c.entryFile = path
		if len(nested) > 0 {
			c.nestedEntries = nested
		}
	}
}

// WithEnvPath reads the environment file from path instead of the project root.
func WithEnvPath(path string) Option {
	return func(c *Configurator) {
		c.envPath = path
	}
}

// WithNaming changes the prefix and no-prefix allowlist.
func WithNaming(naming environ.Naming) Option {
	return func(c *Configurator) {
		c.resolveOpts.Naming = naming
	}
}

// WithProcessEnvironment controls whether the process environment is merged
// under the environment file.
func WithProcessEnvironment(include bool) Option {
	return func(c *Configurator) {
		c.resolveOpts.IncludeEnviron = include
	}
}

// WithEnviron substitutes the process environment source.
func WithEnviron(source func() environ.Environment) Option {
	return func(c *Configurator) {
		c.resolveOpts.Environ = source
	}
}

// WithStrictEnvFile rejects malformed environment file lines.
func WithStrictEnvFile(strict bool) Option {
	return func(c *Configurator) {
		c.resolveOpts.Strict = strict
	}
}

// WithPlugins replaces the plugin registry.
func WithPlugins(registry *plugin.Registry) Option {
	return func(c *Configurator) {
		c.plugins = registry
	}
}

// New constructs a Configurator.
func New(opts ...Option) *Configurator {
	c := &Configurator{
		logger:        zap.NewNop(),
		store:         storage.NewMemoryStorage(),
		nestedEntries: DefaultNestedEntryFiles(),
		resolveOpts:   environ.DefaultResolveOptions(),
		getwd:         os.Getwd,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apply == nil {
		c.apply = c.store.Configure
	}
	if c.plugins == nil {
		c.plugins = plugin.Default(c.resolveOpts.Naming)
	}
	return c
}

// Store is the default apply target.
func (c *Configurator) Store() *storage.MemoryStorage {
	return c.store
}

// Loaded reports whether a run has been applied.
func (c *Configurator) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Config resolves and applies settings. projectRoot may be empty, in which
// case it is derived from the entry file or the working directory. After a
// successful run later calls return the first Result with Reused set and do
// not apply again.
func (c *Configurator) Config(projectRoot string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		c.logger.Debug("settings already configured", zap.String("project_root", c.result.ProjectRoot))
		reused := c.result.clone()
		reused.Reused = true
		return reused, nil
	}

	root, err := c.resolveRoot(projectRoot)
	if err != nil {
		return Result{}, err
	}

	envPath := c.envPath
	if envPath == "" {
		envPath = root
	}
	env, err := environ.Resolve(envPath, c.resolveOpts)
	if err != nil {
		return Result{}, fmt.Errorf("resolve environment: %w", err)
	}

	s := settings.Settings{settings.BaseDirKey: root}
	if err := c.plugins.Apply(env, s); err != nil {
		return Result{}, fmt.Errorf("apply plugins: %w", err)
	}

	if project, ok := s.String(settings.ProjectNameKey); ok {
		loader := overlay.NewLoader(overlay.WithEnvironment(env), overlay.WithLogger(c.logger))
		if err := loader.Apply(overlay.ModuleName(project), s); err != nil {
			return Result{}, fmt.Errorf("project settings: %w", err)
		}
	}

	if err := c.apply(s.Clone()); err != nil {
		return Result{}, fmt.Errorf("apply settings: %w", err)
	}

	c.loaded = true
	c.result = Result{
		ProjectRoot: root,
		Env:         env,
		Settings:    s,
	}
	c.logger.Info("settings configured",
		zap.String("project_root", root),
		zap.Int("settings", len(s)),
		zap.Strings("plugins", c.plugins.Names()),
	)
	return c.result.clone(), nil
}

// clone copies the mappings so callers cannot alter the remembered run.
func (r Result) clone() Result {
	r.Env = r.Env.Clone()
	r.Settings = r.Settings.Clone()
	return r
}

func (c *Configurator) resolveRoot(explicit string) (string, error) {
	if explicit != "" {
		return checkRoot(explicit)
	}
	if c.entryFile != "" {
		return DiscoverProjectRoot(c.entryFile, c.nestedEntries)
	}
	wd, err := c.getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return checkRoot(wd)
}
