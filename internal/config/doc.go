// Package config loads the autosettings tool's own configuration from
// multiple sources (YAML files, AUTOSETTINGS_* environment variables, CLI
// flags) with precedence: CLI flags > YAML config > Environment variables >
// Defaults. It is separate from the settings the tool resolves for the
// application.
package config
