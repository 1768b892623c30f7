// Package flow implements the orchestrator: it sequences intent
// classification, the planning gate, optional gated tool execution, and
// audit logging for a single request.
//
// Each request runs one flow, synchronously, start to finish:
//
//	Received → Classified → PlanningChecked → {Denied | ExecutionRequested}
//	         → ExecutionChecked → {Denied | Executed} → Completed
//
// Every gate check appends exactly one audit record, durably, before
// the decision's consequence (a denial message or a tool invocation) is
// observable to the caller. Concurrent requests each run their own
// orchestrator flow; the audit sink is the only shared mutable
// resource.
package flow
