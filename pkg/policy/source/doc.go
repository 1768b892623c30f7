// Package source provides rule set sources for the policy gate: a YAML
// file source for production use and an in-memory source for tests.
package source
