// Package classify defines the intent classifier collaborator contract
// and the routing decision it produces, together with a deterministic
// heuristic implementation.
//
// The classifier is an external collaborator from the orchestrator's
// point of view: any implementation (heuristic, hosted model, remote
// service) satisfies the Classifier interface. Callers bound the call
// with a context deadline; a timeout surfaces as a classification error.
package classify
