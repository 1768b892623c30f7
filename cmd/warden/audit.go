package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var auditTailFlags struct {
	count   int
	jsonOut bool
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent audit records",
	Long: `Show the most recent audit records from the configured backend,
oldest first.

Examples:
  # Show the last 20 records
  warden audit tail

  # Show the last 100 records as JSON lines
  warden audit tail -n 100 --json`,
	RunE: tailAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditTailCmd)

	auditTailCmd.Flags().IntVarP(&auditTailFlags.count, "count", "n", 20, "number of records to show")
	auditTailCmd.Flags().BoolVar(&auditTailFlags.jsonOut, "json", false, "emit records as JSON lines")
}

func tailAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	sink, err := buildSink(cfg, nil)
	if err != nil {
		return err
	}
	defer sink.Close()

	records, err := sink.Replay(context.Background(), auditTailFlags.count)
	if err != nil {
		return fmt.Errorf("failed to read audit trail: %w", err)
	}

	if auditTailFlags.jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		for _, record := range records {
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Println("audit trail is empty")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s  %-9s  %-7s  actor=%s role=%s action=%s resource=%s rule=%s\n",
			record.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			record.Stage,
			record.Outcome,
			record.Request.ActorID,
			record.Request.Role,
			record.Request.Action,
			record.Request.Resource,
			record.Decision.MatchedRule,
		)
	}
	return nil
}
