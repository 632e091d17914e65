// Package application provides application initialization and dependency wiring.
// It runs the settings pipeline from the tool configuration, applies the
// result to an in-memory store and builds the introspection HTTP server,
// keeping the main package focused on CLI parsing and orchestration.
package application
