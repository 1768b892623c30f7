package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/servicedesk-hq/warden/pkg/policy"
)

// ExecutionError indicates a tool invocation failed: the tool is
// unknown or its run function returned an error. Recovered locally,
// logged, and surfaced as a non-fatal result.
type ExecutionError struct {
	Tool  string
	Cause error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// OrderingViolationError reports an attempt to execute a tool without a
// preceding allowed execution-gate decision. This is a programming
// error in the caller, not a runtime condition: the executor panics
// with it and it is not meant to be caught or retried.
type OrderingViolationError struct {
	Tool string
}

// Error returns the error message.
func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("tool %q invoked without an allowed execution-gate decision", e.Tool)
}

// Result describes one tool invocation attempt.
type Result struct {
	// Tool is the invoked tool name.
	Tool string `json:"tool"`

	// Args are the invocation arguments.
	Args map[string]string `json:"args,omitempty"`

	// Executed reports whether the tool ran to completion.
	Executed bool `json:"executed"`

	// Output is the tool output when execution succeeded.
	Output string `json:"output,omitempty"`

	// Error is the failure message when execution failed.
	Error string `json:"error,omitempty"`
}

// Executor invokes registered tools behind the execution gate.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		logger:   logger.With("component", "tools.executor"),
	}
}

// Invoke runs the named tool.
//
// grant must be the allowed execution-gate decision obtained for this
// tool immediately beforehand; passing a denied (or zero) decision
// panics with *OrderingViolationError. An unknown tool or a failing
// tool returns a *ExecutionError alongside a non-executed Result.
func (e *Executor) Invoke(ctx context.Context, grant policy.Decision, name string, args map[string]string) (*Result, error) {
	if !grant.Allowed {
		panic(&OrderingViolationError{Tool: name})
	}

	result := &Result{Tool: name, Args: args}

	tool, ok := e.registry.Lookup(name)
	if !ok {
		err := &ExecutionError{Tool: name, Cause: fmt.Errorf("unknown tool")}
		result.Error = err.Error()
		e.logger.Error("tool invocation failed", "tool", name, "error", err)
		return result, err
	}

	output, err := tool.Run(ctx, args)
	if err != nil {
		execErr := &ExecutionError{Tool: name, Cause: err}
		result.Error = execErr.Error()
		e.logger.Error("tool invocation failed", "tool", name, "error", err)
		return result, execErr
	}

	result.Executed = true
	result.Output = output

	e.logger.Info("tool executed",
		"tool", name,
		"scope", tool.Scope,
	)

	return result, nil
}
