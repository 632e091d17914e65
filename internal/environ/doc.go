// Package environ builds the environment mapping the settings pipeline reads
// from: the process environment overlaid with an optional `.env` file whose
// keys are rewritten to the same naming convention as process variables.
package environ
