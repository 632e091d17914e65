// Package plugin holds the environment-to-settings transforms. Each plugin
// reads one category of environment data and writes zero or more settings
// keys; a missing variable is a no-op.
package plugin
