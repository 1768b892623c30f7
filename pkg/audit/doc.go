// Package audit implements the append-only audit trail of gate checks.
//
// Every policy gate check produces exactly one record, appended durably
// before any consequence of the decision is acted upon. Sinks expose no
// update or delete operation to the running flow; readers may replay
// the full ordered sequence for inspection.
//
// Three sinks are provided: a newline-delimited JSON file (the durable
// trail, fsynced per append), a SQLite store (queryable, prunable by
// the retention scheduler), and an in-memory sink for tests.
package audit
