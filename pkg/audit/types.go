package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/policy"
)

// Stage identifies which gate produced a record.
type Stage string

const (
	// StagePlanning is the routing gate checked after classification.
	StagePlanning Stage = "planning"

	// StageExecution is the tool gate checked before invocation.
	StageExecution Stage = "execution"
)

// Record is a single audit trail entry: one gate check, its inputs, and
// its decision. Records are append-only and never mutated or deleted by
// the running system; total ordering is append order.
type Record struct {
	// ID is a UUID v4 assigned at creation.
	ID string `json:"id"`

	// FlowID ties together all records of one orchestration flow.
	FlowID string `json:"flow_id"`

	// Timestamp is when the gate check occurred.
	Timestamp time.Time `json:"timestamp"`

	// Stage is the gate that was checked.
	Stage Stage `json:"stage"`

	// Request is the policy request the gate evaluated.
	Request policy.Request `json:"request"`

	// Decision is the gate's decision.
	Decision policy.Decision `json:"decision"`

	// Routing is the classification that led to this check, when one
	// exists (always present for planning records).
	Routing *classify.RoutingDecision `json:"routing,omitempty"`

	// Outcome summarizes what followed the decision (e.g. "denied",
	// "executed", "execution-failed"). Informational only.
	Outcome string `json:"outcome,omitempty"`
}

// NewRecord creates a record for a gate check, stamping ID and time.
func NewRecord(flowID string, stage Stage, req policy.Request, dec policy.Decision, routing *classify.RoutingDecision) *Record {
	return &Record{
		ID:        uuid.NewString(),
		FlowID:    flowID,
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Request:   req,
		Decision:  dec,
		Routing:   routing,
	}
}

// Sink is an append-only audit destination.
//
// Implementations must be safe for concurrent appends from independent
// flows and must make the record durable before Append returns, so a
// crash immediately after a gate decision cannot lose the trail.
type Sink interface {
	// Append durably writes one record.
	Append(ctx context.Context, record *Record) error

	// Replay returns the most recent records in append order, up to
	// limit (all records when limit <= 0).
	Replay(ctx context.Context, limit int) ([]*Record, error)

	// Close releases resources held by the sink.
	Close() error
}
