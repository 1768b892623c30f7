// Package tools implements the gated action executor and the tool
// registry.
//
// The executor refuses to run unless handed an allowed execution-gate
// decision: invoking it without one is an ordering violation and
// panics, since it can only mean the orchestrator skipped the gate.
// Tool failures, by contrast, are ordinary errors surfaced in the
// result and logged.
package tools
