package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONLSink appends records to a newline-delimited JSON file, one
// record per line.
//
// The file is opened in append mode and fsynced after every record, so
// Append does not return before the record is durable. A single mutex
// serializes concurrent appends; interleaved records from independent
// flows can never corrupt or overwrite each other.
type JSONLSink struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONLSink opens (or creates) the audit file at path, creating
// parent directories as needed.
func NewJSONLSink(path string, logger *slog.Logger) (*JSONLSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewSinkError("jsonl", "mkdir", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, NewSinkError("jsonl", "open", err)
	}

	logger = logger.With("component", "audit.jsonl")
	logger.Info("audit log opened", "path", path)

	return &JSONLSink{
		path:   path,
		file:   file,
		logger: logger,
	}, nil
}

// Append writes one record and syncs it to disk before returning.
func (s *JSONLSink) Append(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return NewSinkError("jsonl", "marshal", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(data); err != nil {
		return NewSinkError("jsonl", "write", err)
	}
	if err := s.file.Sync(); err != nil {
		return NewSinkError("jsonl", "sync", err)
	}

	return nil
}

// Replay reads the audit file and returns the last limit records in
// append order (all records when limit <= 0).
func (s *JSONLSink) Replay(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewSinkError("jsonl", "open", err)
	}
	defer f.Close()

	var records []*Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			// A torn trailing line after a crash is tolerated; anything
			// mid-file is reported.
			s.logger.Warn("skipping unparseable audit line", "error", err)
			continue
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, NewSinkError("jsonl", "scan", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Close syncs and closes the audit file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return NewSinkError("jsonl", "sync", err)
	}
	return s.file.Close()
}
