package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/autosettings/internal/application"
	"github.com/eugenenazirov/autosettings/internal/autosettings"
	"github.com/eugenenazirov/autosettings/internal/config"
	"github.com/eugenenazirov/autosettings/internal/logging"
	"github.com/eugenenazirov/autosettings/internal/redact"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("autosettings", "Derive web application settings from the environment and a project settings file")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn, error").String()
	root := kingpinApp.Flag("root", "Project root; defaults to the entry file location or the working directory").String()
	entry := kingpinApp.Flag("entry", "Entry file used to discover the project root").String()
	envPath := kingpinApp.Flag("env-file", "Environment file or directory containing .env; defaults to the project root").String()
	noEnviron := kingpinApp.Flag("no-environ", "Ignore the process environment and read only the environment file").Bool()
	strict := kingpinApp.Flag("strict", "Reject environment file lines that are not KEY=VALUE").Bool()
	prefix := kingpinApp.Flag("prefix", "Prefix for environment keys outside the no-prefix list").String()

	printCmd := kingpinApp.Command("print", "Resolve settings and print them").Default()
	format := printCmd.Flag("format", "Output format").Default("json").Enum("json", "yaml")
	redacted := printCmd.Flag("redact", "Mask secrets in the output").Bool()
	withEnv := printCmd.Flag("with-env", "Include the resolved environment").Bool()

	serveCmd := kingpinApp.Command("serve", "Resolve settings and serve them over a read-only HTTP API")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	allowedOrigins := serveCmd.Flag("allowed-origin", "CORS origin allowed to read settings (repeatable)").Strings()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		NoEnviron:      *noEnviron,
		StrictEnvFile:  *strict,
		AllowedOrigins: *allowedOrigins,
	}
	setIfNotEmpty(&overrides.LogLevel, logLevel)
	setIfNotEmpty(&overrides.ProjectRoot, root)
	setIfNotEmpty(&overrides.EntryFile, entry)
	setIfNotEmpty(&overrides.EnvPath, envPath)
	setIfNotEmpty(&overrides.Port, port)

	if *prefix != "" {
		overrides.Prefix = prefix
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case printCmd.FullCommand():
		result, err := application.Resolve(cfg, logger)
		if err != nil {
			logger.Fatal("failed to resolve settings", zap.Error(err))
		}
		opts := printOptions{format: *format, redact: *redacted, withEnv: *withEnv}
		if err := printResult(os.Stdout, result, opts); err != nil {
			logger.Fatal("failed to print settings", zap.Error(err))
		}

	case serveCmd.FullCommand():
		app, err := application.New(cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize application", zap.Error(err))
		}

		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}

		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

func setIfNotEmpty(target **string, value *string) {
	if value != nil && *value != "" {
		*target = value
	}
}

type printOptions struct {
	format  string
	redact  bool
	withEnv bool
}

type printDocument struct {
	ProjectRoot string            `json:"projectRoot" yaml:"project_root"`
	Settings    map[string]any    `json:"settings" yaml:"settings"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func printResult(w io.Writer, result autosettings.Result, opts printOptions) error {
	doc := printDocument{
		ProjectRoot: result.ProjectRoot,
		Settings:    result.Settings,
	}
	if opts.redact {
		doc.Settings = redact.Settings(result.Settings)
	}
	if opts.withEnv {
		doc.Env = make(map[string]string, len(result.Env))
		for k, v := range result.Env {
			if opts.redact {
				v = redact.Value(k, v).(string)
			}
			doc.Env[k] = v
		}
	}

	switch opts.format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", opts.format)
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
