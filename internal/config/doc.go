// Package config provides configuration management for shepherd.
//
// Configuration is loaded from a single YAML file. The default location is
// ~/.config/shepherd/config.yaml; a custom file can be specified via the
// --config flag. A missing file is not an error: every field has a default
// matching the documented contract of the managed stack, so shepherd runs
// without any configuration at all.
//
// Paths with a leading "~/" are expanded against the user's home directory at
// load time, and out-of-range ports are repaired to the default, so downstream
// components never see raw user input.
package config
