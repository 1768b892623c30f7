package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/servicedesk-hq/warden/pkg/policy"
	"github.com/servicedesk-hq/warden/pkg/policy/source"
)

var lintFlags struct {
	file   string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a rule file",
	Long: `Validate a policy rule file for syntax and semantic errors.

The lint command parses the rule file and performs full validation:
  - YAML syntax validation
  - Required fields (subject, action, resource, effect)
  - Effect values (allow, deny)
  - Duplicate rule IDs

Examples:
  # Lint a rule file
  warden lint --file rules.yaml

  # JSON output for CI/CD
  warden lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule file to validate (required)")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
	lintCmd.MarkFlagRequired("file")
}

type lintResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Rules  int      `json:"rules"`
	Errors []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	result := lintResult{File: lintFlags.file}

	rules, err := source.NewFileSource(lintFlags.file, nil).LoadRules(context.Background())
	if err == nil {
		result.Rules = len(rules.Rules)
		err = rules.Validate()
	}

	if err != nil {
		var verr *policy.ValidationError
		if errors.As(err, &verr) {
			result.Errors = verr.Errors
		} else {
			result.Errors = []string{err.Error()}
		}
	}
	result.Valid = len(result.Errors) == 0

	if lintFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		if result.Valid {
			fmt.Printf("✓ %s: %d rules, no errors\n", result.File, result.Rules)
		} else {
			fmt.Printf("✗ %s: %d errors\n", result.File, len(result.Errors))
			for _, msg := range result.Errors {
				fmt.Printf("  - %s\n", msg)
			}
		}
	}

	if !result.Valid {
		return fmt.Errorf("rule file %q failed validation", result.File)
	}
	return nil
}
