package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/autosettings/internal/environ"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	envPrefix = "AUTOSETTINGS_"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	AllowedOrigins       []string

	ProjectRoot      string
	EntryFile        string
	NestedEntryFiles []string
	EnvPath          string
	IncludeEnviron   bool
	StrictEnvFile    bool
	Prefix           string
	NoPrefixKeys     []string
}

// Naming returns the environment naming convention described by cfg.
func (c Config) Naming() environ.Naming {
	return environ.Naming{
		Prefix:   c.Prefix,
		NoPrefix: c.NoPrefixKeys,
	}
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	AllowedOrigins       []string      `yaml:"allowed_origins"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Project              yamlProject   `yaml:"project"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlProject represents the settings resolution section in YAML.
type yamlProject struct {
	Root             string   `yaml:"root"`
	EntryFile        string   `yaml:"entry_file"`
	NestedEntryFiles []string `yaml:"nested_entry_files"`
	EnvPath          string   `yaml:"env_path"`
	IncludeEnviron   *bool    `yaml:"include_environ"`
	StrictEnvFile    *bool    `yaml:"strict_env_file"`
	Prefix           *string  `yaml:"prefix"`
	NoPrefixKeys     []string `yaml:"no_prefix_keys"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	AllowedOrigins []string
	ProjectRoot    *string
	EntryFile      *string
	EnvPath        *string
	NoEnviron      bool
	StrictEnvFile  bool
	Prefix         *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified (overrides environment)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		NestedEntryFiles:     []string{"wsgi.py"},
		IncludeEnviron:       true,
		Prefix:               environ.DefaultPrefix,
		NoPrefixKeys:         environ.DefaultNoPrefixKeys(),
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if len(yamlCfg.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = yamlCfg.AllowedOrigins
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	project := yamlCfg.Project
	if project.Root != "" {
		cfg.ProjectRoot = project.Root
	}
	if project.EntryFile != "" {
		cfg.EntryFile = project.EntryFile
	}
	if len(project.NestedEntryFiles) > 0 {
		cfg.NestedEntryFiles = project.NestedEntryFiles
	}
	if project.EnvPath != "" {
		cfg.EnvPath = project.EnvPath
	}
	if project.IncludeEnviron != nil {
		cfg.IncludeEnviron = *project.IncludeEnviron
	}
	if project.StrictEnvFile != nil {
		cfg.StrictEnvFile = *project.StrictEnvFile
	}
	if project.Prefix != nil {
		cfg.Prefix = *project.Prefix
	}
	if len(project.NoPrefixKeys) > 0 {
		cfg.NoPrefixKeys = project.NoPrefixKeys
	}
	return nil
}

// applyEnvConfig applies AUTOSETTINGS_* environment variables.
func applyEnvConfig(cfg *Config) error {
	if port := getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if rps := getenv("RATE_LIMIT_RPS"); rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT_RPS: %w", envPrefix, err)
		}
		cfg.RateLimitRPS = value
	}

	if burst := getenv("RATE_LIMIT_BURST"); burst != "" {
		value, err := strconv.Atoi(burst)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT_BURST: %w", envPrefix, err)
		}
		cfg.RateLimitBurst = value
	}

	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}

	if root := getenv("PROJECT_ROOT"); root != "" {
		cfg.ProjectRoot = root
	}
	if entry := getenv("ENTRY_FILE"); entry != "" {
		cfg.EntryFile = entry
	}
	if path := getenv("ENV_PATH"); path != "" {
		cfg.EnvPath = path
	}
	if prefix, ok := os.LookupEnv(envPrefix + "PREFIX"); ok {
		cfg.Prefix = strings.TrimSpace(prefix)
	}
	if keys := getenv("NO_PREFIX_KEYS"); keys != "" {
		cfg.NoPrefixKeys = parseList(keys)
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if len(overrides.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = overrides.AllowedOrigins
	}
	if overrides.ProjectRoot != nil && *overrides.ProjectRoot != "" {
		cfg.ProjectRoot = *overrides.ProjectRoot
	}
	if overrides.EntryFile != nil && *overrides.EntryFile != "" {
		cfg.EntryFile = *overrides.EntryFile
	}
	if overrides.EnvPath != nil && *overrides.EnvPath != "" {
		cfg.EnvPath = *overrides.EnvPath
	}
	if overrides.NoEnviron {
		cfg.IncludeEnviron = false
	}
	if overrides.StrictEnvFile {
		cfg.StrictEnvFile = true
	}
	if overrides.Prefix != nil {
		cfg.Prefix = *overrides.Prefix
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if cfg.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	for _, key := range cfg.NoPrefixKeys {
		if key == "" || strings.ToUpper(key) != key {
			return fmt.Errorf("no-prefix key %q must be a non-empty uppercase name", key)
		}
	}
	return nil
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
