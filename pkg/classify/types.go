package classify

import "context"

// Intent is the closed set of request categories a classifier may emit.
type Intent string

const (
	// IntentInformational is a read-only knowledge request.
	IntentInformational Intent = "informational"

	// IntentOperational is a routine change request automatable with
	// safe tools.
	IntentOperational Intent = "operational"

	// IntentPrivileged is a request touching accounts, access, or
	// credentials. Routing it requires an explicit policy allow.
	IntentPrivileged Intent = "privileged"

	// IntentAmbiguous is anything the classifier cannot place.
	IntentAmbiguous Intent = "ambiguous"
)

// Valid reports whether the intent is one of the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentInformational, IntentOperational, IntentPrivileged, IntentAmbiguous:
		return true
	}
	return false
}

// RiskTier grades the blast radius of acting on a request.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Route identifies the subsystem a request is directed to.
type Route string

const (
	// RouteKnowledgeAgent serves informational lookups; no execution.
	RouteKnowledgeAgent Route = "knowledge_agent"

	// RouteActionAgent performs gated tool execution.
	RouteActionAgent Route = "action_agent"

	// RouteHumanServiceDesk hands the request to a person.
	RouteHumanServiceDesk Route = "human_service_desk"
)

// ToolClass is the class of tools the classifier recommends.
type ToolClass string

const (
	ToolClassNone       ToolClass = "none"
	ToolClassSafe       ToolClass = "safe_tools"
	ToolClassRestricted ToolClass = "restricted_tools"
)

// RoutingDecision is the structured output of a classification.
// It is immutable once produced and request-scoped.
type RoutingDecision struct {
	// Intent is the classified request category.
	Intent Intent `json:"intent"`

	// RiskTier is derived from the intent.
	RiskTier RiskTier `json:"risk_tier"`

	// RouteTo is the proposed target subsystem. The orchestrator may
	// override it after the planning gate.
	RouteTo Route `json:"route_to"`

	// RequiredPrereqs lists prerequisites (e.g. "ticket_id") that must
	// be satisfied before automated handling.
	RequiredPrereqs []string `json:"required_prereqs,omitempty"`

	// RecommendedTools is the tool class appropriate for the intent.
	RecommendedTools ToolClass `json:"recommended_tools"`

	// Explanation is a short, audit-friendly rationale.
	Explanation string `json:"explanation"`

	// Confidence is the classifier's confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Classifier produces a routing decision from free-text user input.
//
// Implementations must honor ctx cancellation and deadlines. They
// return an error only for collaborator failures (unreachable, timed
// out, malformed output); they never make policy decisions.
type Classifier interface {
	Classify(ctx context.Context, input string) (*RoutingDecision, error)
}
