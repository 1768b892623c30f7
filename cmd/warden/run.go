package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/servicedesk-hq/warden/pkg/audit"
	"github.com/servicedesk-hq/warden/pkg/audit/retention"
	"github.com/servicedesk-hq/warden/pkg/classify"
	"github.com/servicedesk-hq/warden/pkg/config"
	"github.com/servicedesk-hq/warden/pkg/flow"
	"github.com/servicedesk-hq/warden/pkg/policy"
	"github.com/servicedesk-hq/warden/pkg/policy/source"
	"github.com/servicedesk-hq/warden/pkg/telemetry/logging"
	"github.com/servicedesk-hq/warden/pkg/telemetry/metrics"
	"github.com/servicedesk-hq/warden/pkg/tools"
)

var runFlags struct {
	input    string
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process requests through the policy-gated router",
	Long: `Process service desk requests through classification, the policy
gates, and gated tool execution.

Requests are read as JSON objects, one per line, from stdin or from the
--input file. One result object is written to stdout per request. The
audit trail is written to the configured backend as each gate check
happens.

Examples:
  # Process requests from stdin
  echo '{"actor_id":"u1","role":"helpdesk","prompt":"how do I reset MFA"}' | warden run

  # Process a batch file with a custom config
  warden run --config /etc/warden/warden.yaml --input requests.jsonl

  # Validate config and rules without processing anything
  warden run --dry-run`,
	RunE: runRouter,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.input, "input", "i", "", "read requests from file instead of stdin")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and rules without processing")
}

func runRouter(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Policy gate
	gate, err := policy.NewGate(ctx, source.NewFileSource(cfg.Policy.RulesPath, logger), logger)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Rules loaded (%d rules from %s)\n", len(gate.Rules()), cfg.Policy.RulesPath)

	if runFlags.dryRun {
		fmt.Fprintln(os.Stderr, "✓ Configuration valid")
		return nil
	}

	// Audit sink
	sink, err := buildSink(cfg, logger)
	if err != nil {
		return err
	}
	defer sink.Close()
	fmt.Fprintf(os.Stderr, "✓ Audit sink initialized (%s)\n", cfg.Audit.Backend)

	// Retention scheduler, sqlite only
	if cfg.Audit.Retention.Enabled {
		store, ok := sink.(retention.Store)
		if !ok {
			return fmt.Errorf("retention requires the sqlite backend, have %q", cfg.Audit.Backend)
		}
		pruner, err := retention.NewPruner(store, &retention.Config{
			RetentionDays: cfg.Audit.Retention.Days,
			MaxRecords:    cfg.Audit.Retention.MaxRecords,
			PruneSchedule: cfg.Audit.Retention.Schedule,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create pruner: %w", err)
		}
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	// Rule file watcher
	if cfg.Policy.Watch {
		watcher, err := policy.NewWatcher(&policy.WatcherConfig{
			Path:             cfg.Policy.RulesPath,
			DebounceInterval: cfg.Policy.WatchDebounce,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule watcher: %w", err)
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, gate.Reload); err != nil {
				logger.Error("rule watcher exited", "error", err)
			}
		}()
	}

	// Metrics endpoint
	var flowMetrics *metrics.FlowMetrics
	if cfg.Telemetry.Metrics.Enabled {
		flowMetrics = metrics.NewFlowMetrics("warden")
		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, flowMetrics.Handler())
		srv := &http.Server{
			Addr:              cfg.Telemetry.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		fmt.Fprintf(os.Stderr, "✓ Metrics on http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	orchestrator, err := flow.New(
		classify.NewHeuristicClassifier(logger),
		gate,
		tools.DefaultRegistry(),
		sink,
		flowMetrics,
		&flow.Config{ClassifyTimeout: cfg.Classifier.Timeout},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return processRequests(ctx, orchestrator, logger)
}

// loadRuntimeConfig loads the config file named by --config. Defaults
// apply when the implicit default file does not exist; a file named
// explicitly must exist.
func loadRuntimeConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err != nil {
		if os.IsNotExist(err) && cfgFile == "warden.yaml" {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", cfgFile, err)
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

func buildSink(cfg *config.Config, logger *slog.Logger) (audit.Sink, error) {
	switch cfg.Audit.Backend {
	case "jsonl":
		return audit.NewJSONLSink(cfg.Audit.JSONL.Path, logger)
	case "sqlite":
		return audit.NewSQLiteSink(&audit.SQLiteConfig{
			Path:        cfg.Audit.SQLite.Path,
			BusyTimeout: cfg.Audit.SQLite.BusyTimeout,
		}, logger)
	case "memory":
		return audit.NewMemorySink(), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}

// processRequests reads one JSON request per line and writes one JSON
// result per line. A malformed line is reported and skipped; the stream
// continues.
func processRequests(ctx context.Context, orchestrator *flow.Orchestrator, logger *slog.Logger) error {
	var in io.Reader = os.Stdin
	if runFlags.input != "" {
		f, err := os.Open(runFlags.input)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	encoder := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			logger.Info("shutdown requested, stopping request stream")
			return nil
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var input flow.Input
		if err := json.Unmarshal(line, &input); err != nil {
			logger.Error("skipping malformed request line", "error", err)
			continue
		}

		result, err := orchestrator.Process(ctx, input)
		if err != nil {
			return fmt.Errorf("flow aborted: %w", err)
		}
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return scanner.Err()
}
