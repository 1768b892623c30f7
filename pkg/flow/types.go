package flow

import (
	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/tools"
)

// State is an orchestration flow state. States advance monotonically;
// Denied and Completed are terminal.
type State string

const (
	StateReceived           State = "received"
	StateClassified         State = "classified"
	StatePlanningChecked    State = "planning_checked"
	StateExecutionRequested State = "execution_requested"
	StateExecutionChecked   State = "execution_checked"
	StateExecuted           State = "executed"
	StateDenied             State = "denied"
	StateCompleted          State = "completed"
)

// Status is the caller-facing final status of a flow.
type Status string

const (
	// StatusCompleted means the flow ran to the end. It covers
	// informational lookups, successful executions, and executions
	// that failed non-fatally (see Result.Execution).
	StatusCompleted Status = "completed"

	// StatusDeniedAtPlanning means the planning gate denied routing.
	StatusDeniedAtPlanning Status = "denied-at-planning"

	// StatusDeniedAtExecution means the execution gate denied the tool.
	StatusDeniedAtExecution Status = "denied-at-execution"

	// StatusClassificationError means the classifier collaborator
	// failed; no gate was reached.
	StatusClassificationError Status = "classification-error"
)

// Input is one user request submitted to the orchestrator.
type Input struct {
	// ActorID identifies the requesting user.
	ActorID string `json:"actor_id"`

	// Role is the actor's role, matched against policy rule subjects.
	Role string `json:"role"`

	// Prompt is the raw user text handed to the classifier.
	Prompt string `json:"prompt"`

	// TicketID is the change ticket backing the request, required
	// before privileged intents are automated.
	TicketID string `json:"ticket_id,omitempty"`

	// Tool optionally names the tool to execute for actionable
	// intents. Empty selects the default tool for the intent.
	Tool string `json:"tool,omitempty"`

	// ToolArgs are the arguments for the tool invocation.
	ToolArgs map[string]string `json:"tool_args,omitempty"`
}

// Result is the caller-facing outcome of a flow.
type Result struct {
	// FlowID ties the result to its audit records.
	FlowID string `json:"flow_id"`

	// Status is the final flow status.
	Status Status `json:"status"`

	// Routing is the classification, present unless classification
	// itself failed.
	Routing *classify.RoutingDecision `json:"routing,omitempty"`

	// Execution is the tool invocation attempt, present only when the
	// flow reached the executor.
	Execution *tools.Result `json:"execution,omitempty"`

	// Reason explains denials, reroutes, and classification failures.
	Reason string `json:"reason,omitempty"`
}
