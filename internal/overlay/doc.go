// Package overlay loads a project's settings file and merges its uppercase
// names into the accumulated settings.
//
// Settings files are data, not code. HCL files hold top-level attributes
// that are evaluated in source order against the settings gathered so far,
// so a file can read and override earlier values:
//
//	TEST = 123
//	DIR  = BASE_DIR
//	STATIC_ROOT = format("%s/static", BASE_DIR)
//
// YAML files hold a plain mapping and cannot reference other settings.
package overlay
