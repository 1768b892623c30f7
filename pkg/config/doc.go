// Package config defines the Warden configuration structure, its
// defaults, YAML loading, environment variable overrides, and
// validation.
//
// Configuration is loaded in four steps: parse the YAML file, apply
// defaults for unset fields, apply WARDEN_* environment overrides, and
// validate the final result. Environment variables always take
// precedence over file values.
package config
