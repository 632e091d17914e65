// Package autosettings runs the settings pipeline: it resolves the project
// root and environment, runs the environment plugins, overlays the project
// settings file and hands the result to an apply function exactly once per
// Configurator.
package autosettings
