package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/autosettings/internal/api"
	"github.com/eugenenazirov/autosettings/internal/autosettings"
	"github.com/eugenenazirov/autosettings/internal/config"
	"github.com/eugenenazirov/autosettings/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	configurator *autosettings.Configurator
	result       autosettings.Result
	handler      *api.Handler
	router       http.Handler
	logger       *zap.Logger
	server       *http.Server
}

// NewConfigurator builds a settings pipeline from the tool configuration.
func NewConfigurator(cfg config.Config, logger *zap.Logger, opts ...autosettings.Option) *autosettings.Configurator {
	base := []autosettings.Option{
		autosettings.WithLogger(logger),
		autosettings.WithNaming(cfg.Naming()),
		autosettings.WithProcessEnvironment(cfg.IncludeEnviron),
		autosettings.WithStrictEnvFile(cfg.StrictEnvFile),
		autosettings.WithEnvPath(cfg.EnvPath),
	}
	if cfg.EntryFile != "" {
		base = append(base, autosettings.WithEntryFile(cfg.EntryFile, cfg.NestedEntryFiles...))
	}
	return autosettings.New(append(base, opts...)...)
}

// Resolve runs the pipeline once and returns its result.
func Resolve(cfg config.Config, logger *zap.Logger, opts ...autosettings.Option) (autosettings.Result, error) {
	result, err := NewConfigurator(cfg, logger, opts...).Config(cfg.ProjectRoot)
	if err != nil {
		return autosettings.Result{}, fmt.Errorf("resolve settings: %w", err)
	}
	return result, nil
}

// New resolves settings and initializes the introspection server.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	configurator := NewConfigurator(cfg, logger)
	result, err := configurator.Config(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	store := configurator.Store()
	handler := api.NewHandler(store, api.WithProjectRoot(result.ProjectRoot))
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
	)

	return &App{
		configurator: configurator,
		result:       result,
		handler:      handler,
		router:       router,
		logger:       logger,
		server:       NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("project_root", a.result.ProjectRoot),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Store returns the store the settings were applied to.
func (a *App) Store() storage.Storage {
	return a.configurator.Store()
}

// Result returns the pipeline result the app was built from.
func (a *App) Result() autosettings.Result {
	return a.result
}
