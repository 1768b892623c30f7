package metrics

import (
	"testing"
	"time"
)

func TestFlowMetricsRecording(t *testing.T) {
	m := NewFlowMetrics("warden")

	m.RecordGateCheck("planning", true, 50*time.Microsecond)
	m.RecordGateCheck("execution", false, 30*time.Microsecond)
	m.RecordFlow("completed")
	m.RecordFlow("denied-at-planning")
	m.RecordClassification(2 * time.Millisecond)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := map[string]bool{}
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	for _, name := range []string{
		"warden_gate_checks_total",
		"warden_gate_check_duration_seconds",
		"warden_flows_total",
		"warden_classification_duration_seconds",
	} {
		if !found[name] {
			t.Errorf("Gather() missing metric family %q", name)
		}
	}
}

// A nil receiver must be a safe no-op so disabled metrics need no
// branching at call sites.
func TestFlowMetricsNilReceiver(t *testing.T) {
	var m *FlowMetrics
	m.RecordGateCheck("planning", true, time.Microsecond)
	m.RecordFlow("completed")
	m.RecordClassification(time.Millisecond)
}
