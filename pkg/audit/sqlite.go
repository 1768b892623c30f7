package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/servicedesk-hq/warden/pkg/classify"
)

// sqliteSchema creates the audit table. Records are insert-only; no
// update path exists.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    flow_id      TEXT NOT NULL,
    timestamp    TIMESTAMP NOT NULL,
    stage        TEXT NOT NULL,
    actor_id     TEXT NOT NULL,
    role         TEXT NOT NULL,
    action       TEXT NOT NULL,
    resource     TEXT NOT NULL,
    allowed      BOOLEAN NOT NULL,
    matched_rule TEXT,
    routing      TEXT,
    outcome      TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_flow_id ON audit_records(flow_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
`

// SQLiteConfig contains configuration for the SQLite sink.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteSink stores audit records in SQLite for queryable retention.
//
// WAL mode with synchronous=FULL keeps the durable-before-return
// contract: the INSERT's implicit transaction is flushed before Append
// returns. database/sql serializes access per connection; concurrent
// appends from independent flows are safe.
type SQLiteSink struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteSink opens (or creates) the audit database at config.Path.
func NewSQLiteSink(config *SQLiteConfig, logger *slog.Logger) (*SQLiteSink, error) {
	if config == nil {
		return nil, NewSinkError("sqlite", "open", fmt.Errorf("config cannot be nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewSinkError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, NewSinkError("sqlite", "open", err)
	}

	s := &SQLiteSink{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit store initialized", "path", config.Path)
	return s, nil
}

func (s *SQLiteSink) initialize() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return NewSinkError("sqlite", "pragma", err)
		}
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return NewSinkError("sqlite", "create_schema", err)
	}
	return nil
}

// Append inserts one record.
func (s *SQLiteSink) Append(ctx context.Context, record *Record) error {
	var routing []byte
	if record.Routing != nil {
		var err error
		routing, err = json.Marshal(record.Routing)
		if err != nil {
			return NewSinkError("sqlite", "marshal_routing", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records
		    (id, flow_id, timestamp, stage, actor_id, role, action, resource, allowed, matched_rule, routing, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.FlowID,
		record.Timestamp.UTC(),
		string(record.Stage),
		record.Request.ActorID,
		record.Request.Role,
		record.Request.Action,
		record.Request.Resource,
		record.Decision.Allowed,
		record.Decision.MatchedRule,
		nullableString(routing),
		record.Outcome,
	)
	if err != nil {
		return NewSinkError("sqlite", "insert", err)
	}
	return nil
}

// Replay returns the last limit records in append order.
func (s *SQLiteSink) Replay(ctx context.Context, limit int) ([]*Record, error) {
	query := `
		SELECT id, flow_id, timestamp, stage, actor_id, role, action, resource, allowed, matched_rule, routing, outcome
		FROM audit_records ORDER BY seq`
	var args []any
	if limit > 0 {
		// Last N in append order: take the newest N descending, then
		// reverse in memory.
		query = `
		SELECT id, flow_id, timestamp, stage, actor_id, role, action, resource, allowed, matched_rule, routing, outcome
		FROM audit_records ORDER BY seq DESC LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewSinkError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			record      Record
			stage       string
			matchedRule sql.NullString
			routing     sql.NullString
			outcome     sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.FlowID,
			&record.Timestamp,
			&stage,
			&record.Request.ActorID,
			&record.Request.Role,
			&record.Request.Action,
			&record.Request.Resource,
			&record.Decision.Allowed,
			&matchedRule,
			&routing,
			&outcome,
		)
		if err != nil {
			return nil, NewSinkError("sqlite", "scan", err)
		}

		record.Stage = Stage(stage)
		record.Decision.MatchedRule = matchedRule.String
		record.Outcome = outcome.String
		if routing.Valid && routing.String != "" {
			var rd classify.RoutingDecision
			if err := json.Unmarshal([]byte(routing.String), &rd); err != nil {
				return nil, NewSinkError("sqlite", "unmarshal_routing", err)
			}
			record.Routing = &rd
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSinkError("sqlite", "rows", err)
	}

	if limit > 0 {
		reverse(records)
	}
	return records, nil
}

// Count returns the total number of stored records.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count)
	if err != nil {
		return 0, NewSinkError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes records with a timestamp before cutoff.
// Retention use only; the running flow never deletes.
func (s *SQLiteSink) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, NewSinkError("sqlite", "delete", err)
	}
	return res.RowsAffected()
}

// DeleteOldest removes the oldest records so at most keep remain.
// Retention use only.
func (s *SQLiteSink) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_records WHERE seq NOT IN (
		    SELECT seq FROM audit_records ORDER BY seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, NewSinkError("sqlite", "delete", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func reverse(records []*Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
