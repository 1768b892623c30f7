package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/policy"
)

func testRecord(flowID string, stage Stage, allowed bool) *Record {
	return NewRecord(flowID, stage,
		policy.Request{ActorID: "u1", Role: "helpdesk", Action: "route:intent:informational", Resource: "knowledge_agent"},
		policy.Decision{Allowed: allowed, MatchedRule: "helpdesk-informational"},
		&classify.RoutingDecision{Intent: classify.IntentInformational, RiskTier: classify.RiskLow, RouteTo: classify.RouteKnowledgeAgent},
	)
}

func newTestJSONLSink(t *testing.T) *JSONLSink {
	t.Helper()
	sink, err := NewJSONLSink(filepath.Join(t.TempDir(), "audit.jsonl"), nil)
	if err != nil {
		t.Fatalf("NewJSONLSink() error = %v", err)
	}
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestJSONLAppendReplay(t *testing.T) {
	sink := newTestJSONLSink(t)
	ctx := context.Background()

	want := []*Record{
		testRecord("flow-1", StagePlanning, true),
		testRecord("flow-1", StageExecution, true),
		testRecord("flow-2", StagePlanning, false),
	}
	for _, r := range want {
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := sink.Replay(ctx, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Replay() returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("Replay()[%d].ID = %q, want %q (append order must be preserved)", i, got[i].ID, want[i].ID)
		}
		if got[i].Stage != want[i].Stage {
			t.Errorf("Replay()[%d].Stage = %q, want %q", i, got[i].Stage, want[i].Stage)
		}
	}

	if got[2].Decision.Allowed {
		t.Error("Replay() third record allowed = true, want false")
	}
	if got[0].Routing == nil || got[0].Routing.Intent != classify.IntentInformational {
		t.Errorf("Replay() routing not round-tripped: %+v", got[0].Routing)
	}
}

func TestJSONLReplayLimit(t *testing.T) {
	sink := newTestJSONLSink(t)
	ctx := context.Background()

	var last string
	for i := 0; i < 10; i++ {
		r := testRecord(fmt.Sprintf("flow-%d", i), StagePlanning, true)
		last = r.ID
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := sink.Replay(ctx, 3)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Replay(3) returned %d records, want 3", len(got))
	}
	if got[2].ID != last {
		t.Errorf("Replay(3) last record = %q, want most recent %q", got[2].ID, last)
	}
}

// TestJSONLConcurrentAppends verifies serialized appends from
// concurrent flows never corrupt the file.
func TestJSONLConcurrentAppends(t *testing.T) {
	sink := newTestJSONLSink(t)
	ctx := context.Background()

	const flows, perFlow = 8, 25
	var wg sync.WaitGroup
	for f := 0; f < flows; f++ {
		wg.Add(1)
		go func(f int) {
			defer wg.Done()
			for i := 0; i < perFlow; i++ {
				r := testRecord(fmt.Sprintf("flow-%d", f), StagePlanning, true)
				if err := sink.Append(ctx, r); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}
		}(f)
	}
	wg.Wait()

	got, err := sink.Replay(ctx, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != flows*perFlow {
		t.Errorf("Replay() returned %d records, want %d (no lost or torn appends)", len(got), flows*perFlow)
	}
}

func TestJSONLToleratesTornTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	sink, err := NewJSONLSink(path, nil)
	if err != nil {
		t.Fatalf("NewJSONLSink() error = %v", err)
	}

	ctx := context.Background()
	if err := sink.Append(ctx, testRecord("flow-1", StagePlanning, true)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	sink.Close()

	// Simulate a crash mid-append.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"id":"torn`)
	f.Close()

	sink, err = NewJSONLSink(path, nil)
	if err != nil {
		t.Fatalf("NewJSONLSink() reopen error = %v", err)
	}
	defer sink.Close()

	got, err := sink.Replay(ctx, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Replay() returned %d records, want 1 complete record", len(got))
	}
}

func TestMemorySinkCopiesRecords(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	r := testRecord("flow-1", StagePlanning, true)
	if err := sink.Append(ctx, r); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	r.Outcome = "mutated-after-append"

	got, err := sink.Replay(ctx, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if got[0].Outcome == "mutated-after-append" {
		t.Error("Replay() returned shared state; appended records must be copies")
	}
}
