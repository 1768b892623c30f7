package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/servicedesk-hq/warden/pkg/policy"
)

// FileSource loads a rule set from a YAML file on disk.
//
// Expected format:
//
//	version: "1"
//	rules:
//	  - id: helpdesk-informational
//	    subject: helpdesk
//	    action: "route:intent:informational"
//	    resource: "*"
//	    effect: allow
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based rule source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "policy.source.file"),
	}
}

// LoadRules reads and parses the rule file.
func (s *FileSource) LoadRules(ctx context.Context) (*policy.RuleSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", s.path, err)
	}

	var rules policy.RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", s.path, err)
	}

	s.logger.Debug("rule file loaded",
		"path", s.path,
		"rule_count", len(rules.Rules),
	)

	return &rules, nil
}

// Path returns the rule file path.
func (s *FileSource) Path() string {
	return s.path
}
