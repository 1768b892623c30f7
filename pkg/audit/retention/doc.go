// Package retention prunes the queryable SQLite audit store by age and
// record count on a cron schedule. The JSONL audit trail is never
// pruned by the running system.
package retention
