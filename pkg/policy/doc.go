// Package policy implements the policy gate: a deterministic decision
// function mapping (actor, action, resource) requests to allow/deny
// decisions against a loaded rule set.
//
// The gate is consulted twice per flow with identical mechanics but
// different request shapes: once at the planning stage (action is the
// requested route, resource is the target subsystem) and once at the
// execution stage (action is the tool name, resource is the tool scope).
//
// Denial is a normal outcome, never an error. The gate only fails when
// the rule set cannot be loaded or is malformed at startup.
package policy
