// Package telemetry provides observability for Warden.
//
// # Components
//
//   - logging: structured logging built on log/slog
//   - metrics: Prometheus metrics for flows and gate checks
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
//	m := metrics.NewFlowMetrics("warden")
//	m.RecordGateCheck("planning", true, elapsed)
//	http.Handle("/metrics", m.Handler())
//
// All metric recording methods are safe on a nil receiver, so metrics
// can be disabled by passing a nil *FlowMetrics through the wiring.
package telemetry
