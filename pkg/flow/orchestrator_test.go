package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/servicedesk-hq/warden/pkg/audit"
	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/policy"
	"github.com/servicedesk-hq/warden/pkg/policy/source"
	"github.com/servicedesk-hq/warden/pkg/tools"
)

// stubClassifier returns a fixed decision or error.
type stubClassifier struct {
	decision *classify.RoutingDecision
	err      error
	delay    time.Duration
}

func (s *stubClassifier) Classify(ctx context.Context, input string) (*classify.RoutingDecision, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, &classify.ClassificationError{Cause: ctx.Err()}
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

// failingSink always fails appends.
type failingSink struct{}

func (failingSink) Append(ctx context.Context, record *audit.Record) error {
	return errors.New("disk full")
}
func (failingSink) Replay(ctx context.Context, limit int) ([]*audit.Record, error) { return nil, nil }
func (failingSink) Close() error                                                   { return nil }

func routingFor(intent classify.Intent, route classify.Route) *classify.RoutingDecision {
	d := &classify.RoutingDecision{
		Intent:     intent,
		RiskTier:   classify.RiskMedium,
		RouteTo:    route,
		Confidence: 0.8,
	}
	if intent == classify.IntentPrivileged {
		d.RiskTier = classify.RiskHigh
		d.RequiredPrereqs = []string{"ticket_id"}
	}
	return d
}

func testGate(t *testing.T, rules ...policy.Rule) *policy.Gate {
	t.Helper()
	gate, err := policy.NewGate(context.Background(), source.NewMemorySource(rules...), nil)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	return gate
}

// trackingRegistry returns a registry whose single tool records whether
// it was invoked.
func trackingRegistry(t *testing.T, name, scope string, called *bool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	err := r.Register(tools.Tool{
		Name:  name,
		Scope: scope,
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			*called = true
			return "done", nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

func newOrchestrator(t *testing.T, c classify.Classifier, gate *policy.Gate, registry *tools.Registry, sink audit.Sink) *Orchestrator {
	t.Helper()
	o, err := New(c, gate, registry, sink, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestProcessInformationalCompletesWithoutExecution(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "helpdesk-info", Subject: "helpdesk", Action: "route:intent:informational", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentInformational, classify.RouteKnowledgeAgent)},
		gate, trackingRegistry(t, "get_kb_article", "kb", &called), sink)

	result, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "helpdesk", Prompt: "how do I set up vpn"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusCompleted)
	}
	if result.Execution != nil {
		t.Error("Process() execution result present, want none for informational intent")
	}
	if called {
		t.Error("tool invoked for informational intent")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 1 {
		t.Fatalf("audit records = %d, want exactly 1", len(records))
	}
	if records[0].Stage != audit.StagePlanning {
		t.Errorf("record stage = %q, want planning", records[0].Stage)
	}
	if records[0].FlowID != result.FlowID {
		t.Errorf("record flow id = %q, want %q", records[0].FlowID, result.FlowID)
	}
}

func TestProcessDeniedAtPlanning(t *testing.T) {
	// No rule allows contractors to route privileged intents.
	gate := testGate(t,
		policy.Rule{ID: "helpdesk-info", Subject: "helpdesk", Action: "route:intent:informational", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentPrivileged, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "reset_password", "identity", &called), sink)

	result, err := o.Process(context.Background(), Input{ActorID: "u2", Role: "contractor", Prompt: "reset password for jdoe", TicketID: "INC-1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusDeniedAtPlanning {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusDeniedAtPlanning)
	}
	if result.Reason == "" {
		t.Error("Process() reason is empty for a denial")
	}
	if called {
		t.Error("tool invoked after planning denial")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 1 {
		t.Fatalf("audit records = %d, want exactly 1", len(records))
	}
	if records[0].Decision.Allowed {
		t.Error("planning record allowed = true, want false")
	}
}

func TestProcessDeniedAtExecution(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "ops-routes", Subject: "ops", Action: "route:intent:operational", Resource: "*", Effect: policy.EffectAllow},
		policy.Rule{ID: "no-delete", Subject: "*", Action: "tool:delete_file", Resource: "*", Effect: policy.EffectDeny},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentOperational, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "delete_file", "filesystem", &called), sink)

	result, err := o.Process(context.Background(), Input{
		ActorID: "u3", Role: "ops", Prompt: "clean up the temp share",
		Tool: "delete_file", ToolArgs: map[string]string{"path": "/tmp/x"},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusDeniedAtExecution {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusDeniedAtExecution)
	}
	if called {
		t.Error("tool invoked despite execution-gate denial")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 2 {
		t.Fatalf("audit records = %d, want exactly 2", len(records))
	}
	// Within-flow ordering: planning first, execution second.
	if records[0].Stage != audit.StagePlanning || records[1].Stage != audit.StageExecution {
		t.Errorf("record stages = %q, %q; want planning, execution", records[0].Stage, records[1].Stage)
	}
	if !records[0].Decision.Allowed {
		t.Error("planning record allowed = false, want true")
	}
	if records[1].Decision.Allowed {
		t.Error("execution record allowed = true, want false")
	}
	if records[1].Request.Action != "tool:delete_file" {
		t.Errorf("execution record action = %q, want %q", records[1].Request.Action, "tool:delete_file")
	}
}

func TestProcessClassificationTimeout(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "allow-all", Subject: "*", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()

	o, err := New(
		&stubClassifier{delay: time.Second, decision: routingFor(classify.IntentInformational, classify.RouteKnowledgeAgent)},
		gate, trackingRegistry(t, "get_kb_article", "kb", &called), sink, nil,
		&Config{ClassifyTimeout: 10 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "helpdesk", Prompt: "anything"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusClassificationError {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusClassificationError)
	}
	if result.Routing != nil {
		t.Error("Process() routing present, want none when classification failed")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 0 {
		t.Errorf("audit records = %d, want 0 (classification never reached a gate)", len(records))
	}
}

func TestProcessMalformedClassifierOutput(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "allow-all", Subject: "*", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	o := newOrchestrator(t,
		&stubClassifier{decision: &classify.RoutingDecision{Intent: "nonsense"}},
		gate, trackingRegistry(t, "get_kb_article", "kb", &called), audit.NewMemorySink())

	result, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "helpdesk", Prompt: "anything"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Status != StatusClassificationError {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusClassificationError)
	}
}

func TestProcessOperationalExecutes(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "ops-routes", Subject: "ops", Action: "route:intent:operational", Resource: "*", Effect: policy.EffectAllow},
		policy.Rule{ID: "kb-ok", Subject: "*", Action: "tool:get_kb_article", Resource: "kb", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentOperational, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "get_kb_article", "kb", &called), sink)

	result, err := o.Process(context.Background(), Input{
		ActorID: "u1", Role: "ops", Prompt: "update the kb index",
		ToolArgs: map[string]string{"query": "index"},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusCompleted)
	}
	if !called {
		t.Error("tool not invoked despite allowed execution gate")
	}
	if result.Execution == nil || !result.Execution.Executed {
		t.Errorf("Process() execution = %+v, want executed result", result.Execution)
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 2 {
		t.Fatalf("audit records = %d, want exactly 2", len(records))
	}
	for i, r := range records {
		if !r.Decision.Allowed {
			t.Errorf("record %d allowed = false, want true", i)
		}
	}
}

func TestProcessPrivilegedWithoutTicketReroutes(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "admin-all", Subject: "it_admin", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentPrivileged, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "reset_password", "identity", &called), sink)

	result, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "it_admin", Prompt: "reset password for jdoe"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusCompleted)
	}
	if called {
		t.Error("tool invoked without the required ticket")
	}
	if result.Routing.RouteTo != classify.RouteHumanServiceDesk {
		t.Errorf("Process() route = %q, want reroute to %q", result.Routing.RouteTo, classify.RouteHumanServiceDesk)
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 1 {
		t.Errorf("audit records = %d, want 1 (no execution gate reached)", len(records))
	}
}

func TestProcessPrivilegedWithTicketExecutes(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "admin-all", Subject: "it_admin", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentPrivileged, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "reset_password", "identity", &called), sink)

	result, err := o.Process(context.Background(), Input{
		ActorID: "u1", Role: "it_admin", Prompt: "reset password for jdoe",
		TicketID: "INC-42", ToolArgs: map[string]string{"username": "jdoe"},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Process() status = %q, want %q", result.Status, StatusCompleted)
	}
	if !called {
		t.Error("tool not invoked despite ticket and allowed gates")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 2 {
		t.Errorf("audit records = %d, want 2", len(records))
	}
}

func TestProcessToolFailureIsNonFatal(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "allow-all", Subject: "*", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	registry := tools.NewRegistry()
	registry.Register(tools.Tool{
		Name:  "get_kb_article",
		Scope: "kb",
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			return "", errors.New("kb backend down")
		},
	})
	sink := audit.NewMemorySink()
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentOperational, classify.RouteActionAgent)},
		gate, registry, sink)

	result, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "ops", Prompt: "look something up"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Process() status = %q, want %q (tool failure is non-fatal)", result.Status, StatusCompleted)
	}
	if result.Execution == nil || result.Execution.Executed {
		t.Errorf("Process() execution = %+v, want failed, non-executed result", result.Execution)
	}
	if result.Execution.Error == "" {
		t.Error("Process() execution error is empty, want failure message")
	}

	records, _ := sink.Replay(context.Background(), 0)
	if len(records) != 2 {
		t.Errorf("audit records = %d, want 2 regardless of execution outcome", len(records))
	}
}

// TestProcessAuditFailureStopsFlow verifies a flow cannot proceed past
// a gate check whose record was not durably written.
func TestProcessAuditFailureStopsFlow(t *testing.T) {
	gate := testGate(t,
		policy.Rule{ID: "allow-all", Subject: "*", Action: "*", Resource: "*", Effect: policy.EffectAllow},
	)
	var called bool
	o := newOrchestrator(t,
		&stubClassifier{decision: routingFor(classify.IntentOperational, classify.RouteActionAgent)},
		gate, trackingRegistry(t, "get_kb_article", "kb", &called), failingSink{})

	_, err := o.Process(context.Background(), Input{ActorID: "u1", Role: "ops", Prompt: "anything"})
	if err == nil {
		t.Fatal("Process() error = nil, want audit append failure")
	}
	if called {
		t.Error("tool invoked although the audit trail could not be written")
	}
}
