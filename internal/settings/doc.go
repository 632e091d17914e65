// Package settings defines the settings mapping that the resolution pipeline
// builds up and finally hands to the framework. Keys are uppercase names;
// values are plain Go scalars, slices and nested maps so that they encode
// cleanly to JSON and YAML.
package settings
