package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servicedesk-hq/warden/pkg/audit"
	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/policy"
	"github.com/servicedesk-hq/warden/pkg/telemetry/metrics"
	"github.com/servicedesk-hq/warden/pkg/tools"
)

// Config contains orchestrator configuration.
type Config struct {
	// ClassifyTimeout bounds the classifier collaborator call.
	// Default: 10 seconds.
	ClassifyTimeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() *Config {
	return &Config{
		ClassifyTimeout: 10 * time.Second,
	}
}

// Orchestrator sequences one request through classification, the
// planning gate, optional gated execution, and audit logging.
//
// An orchestrator is safe for concurrent use: each Process call is an
// independent flow, and the gate and sink handle their own
// synchronization.
type Orchestrator struct {
	classifier classify.Classifier
	gate       *policy.Gate
	executor   *tools.Executor
	registry   *tools.Registry
	sink       audit.Sink
	metrics    *metrics.FlowMetrics
	config     *Config
	logger     *slog.Logger
}

// New creates an orchestrator. metrics may be nil to disable metrics.
func New(
	classifier classify.Classifier,
	gate *policy.Gate,
	registry *tools.Registry,
	sink audit.Sink,
	flowMetrics *metrics.FlowMetrics,
	config *Config,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if gate == nil {
		return nil, fmt.Errorf("policy gate cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("audit sink cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.ClassifyTimeout <= 0 {
		config.ClassifyTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		classifier: classifier,
		gate:       gate,
		executor:   tools.NewExecutor(registry, logger),
		registry:   registry,
		sink:       sink,
		metrics:    flowMetrics,
		config:     config,
		logger:     logger.With("component", "flow.orchestrator"),
	}, nil
}

// Process runs one flow synchronously and returns its result.
//
// A classification failure, a denial, or a tool failure is a normal
// flow outcome encoded in the result, not an error. Process returns an
// error only when the audit trail cannot be written: the flow must not
// proceed past a gate check whose record is not durable.
func (o *Orchestrator) Process(ctx context.Context, input Input) (*Result, error) {
	flowID := uuid.NewString()
	logger := o.logger.With("flow_id", flowID, "actor_id", input.ActorID, "role", input.Role)

	state := StateReceived
	logger.Info("flow received")

	// Received → Classified
	routing, err := o.classifyInput(ctx, input.Prompt)
	if err != nil {
		logger.Warn("classification failed, flow terminated", "error", err)
		o.metrics.RecordFlow(string(StatusClassificationError))
		return &Result{
			FlowID: flowID,
			Status: StatusClassificationError,
			Reason: err.Error(),
		}, nil
	}
	state = StateClassified
	logger.Info("input classified",
		"intent", routing.Intent,
		"risk_tier", routing.RiskTier,
		"route_to", routing.RouteTo,
	)

	// Classified → PlanningChecked
	planningReq := policy.Request{
		ActorID:  input.ActorID,
		Role:     input.Role,
		Action:   "route:intent:" + string(routing.Intent),
		Resource: string(routing.RouteTo),
	}
	planningDec, err := o.checkGate(ctx, flowID, audit.StagePlanning, planningReq, routing)
	if err != nil {
		return nil, err
	}
	state = StatePlanningChecked

	if !planningDec.Allowed {
		state = StateDenied
		logger.Info("flow denied at planning gate", "matched_rule", planningDec.MatchedRule)
		o.metrics.RecordFlow(string(StatusDeniedAtPlanning))
		return &Result{
			FlowID:  flowID,
			Status:  StatusDeniedAtPlanning,
			Routing: routing,
			Reason:  denialReason(routing.Intent, planningDec),
		}, nil
	}

	// Informational and ambiguous intents never execute.
	switch routing.Intent {
	case classify.IntentInformational, classify.IntentAmbiguous:
		state = StateCompleted
		logger.Info("flow completed without execution", "state", state)
		o.metrics.RecordFlow(string(StatusCompleted))
		return &Result{
			FlowID:  flowID,
			Status:  StatusCompleted,
			Routing: routing,
		}, nil
	}

	// Automation requires the classifier's prerequisites to be met;
	// otherwise the request goes to a person instead of the executor.
	if missing := missingPrereqs(routing, input); len(missing) > 0 {
		rerouted := *routing
		rerouted.RouteTo = classify.RouteHumanServiceDesk
		state = StateCompleted
		logger.Info("request rerouted to service desk, prerequisites missing",
			"missing", missing,
		)
		o.metrics.RecordFlow(string(StatusCompleted))
		return &Result{
			FlowID:  flowID,
			Status:  StatusCompleted,
			Routing: &rerouted,
			Reason:  fmt.Sprintf("missing prerequisites before automated handling: %s", strings.Join(missing, ", ")),
		}, nil
	}

	// PlanningChecked → ExecutionRequested
	state = StateExecutionRequested
	toolName := input.Tool
	if toolName == "" {
		toolName = defaultToolForIntent(routing.Intent)
	}
	executionReq := policy.Request{
		ActorID:  input.ActorID,
		Role:     input.Role,
		Action:   "tool:" + toolName,
		Resource: o.toolScope(toolName),
	}

	// ExecutionRequested → ExecutionChecked
	executionDec, err := o.checkGate(ctx, flowID, audit.StageExecution, executionReq, routing)
	if err != nil {
		return nil, err
	}
	state = StateExecutionChecked

	if !executionDec.Allowed {
		state = StateDenied
		logger.Info("flow denied at execution gate",
			"tool", toolName,
			"matched_rule", executionDec.MatchedRule,
		)
		o.metrics.RecordFlow(string(StatusDeniedAtExecution))
		return &Result{
			FlowID:  flowID,
			Status:  StatusDeniedAtExecution,
			Routing: routing,
			Reason:  fmt.Sprintf("policy denied execution of tool %q", toolName),
		}, nil
	}

	// ExecutionChecked → Executed. A tool failure is non-fatal: the
	// flow still completes, carrying the failed result.
	execResult, execErr := o.executor.Invoke(ctx, executionDec, toolName, input.ToolArgs)
	state = StateExecuted
	if execErr != nil {
		logger.Warn("tool execution failed", "tool", toolName, "error", execErr)
	}

	state = StateCompleted
	logger.Info("flow completed", "state", state, "executed", execResult.Executed)
	o.metrics.RecordFlow(string(StatusCompleted))

	return &Result{
		FlowID:    flowID,
		Status:    StatusCompleted,
		Routing:   routing,
		Execution: execResult,
	}, nil
}

// classifyInput calls the classifier collaborator under the configured
// timeout. Timeouts and collaborator failures both surface as
// classification errors.
func (o *Orchestrator) classifyInput(ctx context.Context, prompt string) (*classify.RoutingDecision, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, o.config.ClassifyTimeout)
	defer cancel()

	start := time.Now()
	routing, err := o.classifier.Classify(classifyCtx, prompt)
	o.metrics.RecordClassification(time.Since(start))

	if err != nil {
		var cerr *classify.ClassificationError
		if !errors.As(err, &cerr) {
			err = &classify.ClassificationError{Cause: err}
		}
		return nil, err
	}
	if routing == nil || !routing.Intent.Valid() {
		return nil, &classify.ClassificationError{
			Cause: fmt.Errorf("classifier returned malformed routing decision"),
		}
	}
	return routing, nil
}

// checkGate evaluates one gate request and appends its audit record.
// The record is durable before the decision is returned, so no
// consequence can be observed before the trail holds the check.
func (o *Orchestrator) checkGate(ctx context.Context, flowID string, stage audit.Stage, req policy.Request, routing *classify.RoutingDecision) (policy.Decision, error) {
	start := time.Now()
	decision := o.gate.Evaluate(req)
	o.metrics.RecordGateCheck(string(stage), decision.Allowed, time.Since(start))

	record := audit.NewRecord(flowID, stage, req, decision, routing)
	if decision.Allowed {
		record.Outcome = "allowed"
	} else {
		record.Outcome = "denied"
	}

	if err := o.sink.Append(ctx, record); err != nil {
		return policy.Decision{}, fmt.Errorf("audit append failed at %s gate: %w", stage, err)
	}
	return decision, nil
}

func (o *Orchestrator) toolScope(toolName string) string {
	if tool, ok := o.registry.Lookup(toolName); ok {
		return tool.Scope
	}
	// Unknown tools are still gate-checked; the executor will reject
	// them afterwards if somehow allowed.
	return "unknown"
}

// missingPrereqs returns the classifier prerequisites the input does
// not satisfy. Unknown prerequisite names are reported as missing: a
// prerequisite this code cannot check must not silently pass.
func missingPrereqs(routing *classify.RoutingDecision, input Input) []string {
	var missing []string
	for _, prereq := range routing.RequiredPrereqs {
		switch prereq {
		case "ticket_id":
			if input.TicketID == "" {
				missing = append(missing, prereq)
			}
		default:
			missing = append(missing, prereq)
		}
	}
	return missing
}

func defaultToolForIntent(intent classify.Intent) string {
	if intent == classify.IntentPrivileged {
		return "reset_password"
	}
	return "get_kb_article"
}

func denialReason(intent classify.Intent, dec policy.Decision) string {
	if dec.MatchedRule != "" {
		return fmt.Sprintf("policy rule %q does not permit routing %s requests for this role", dec.MatchedRule, intent)
	}
	return fmt.Sprintf("no policy rule permits routing %s requests for this role", intent)
}
