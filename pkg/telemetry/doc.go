// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for stagers.
//
// # Prometheus Metrics
//
// One Metrics value is shared by every stager of a process:
//
//   - filestage_files_accepted_total: files accepted into a store
//   - filestage_files_rejected_total: files rejected, by reason
//   - filestage_entries_removed_total: entries removed explicitly
//   - filestage_preview_handles_live: preview handles currently allocated
//   - filestage_preview_acquire_errors_total: failed preview allocations
//   - filestage_batch_duration_seconds: evaluate+apply duration per batch
//
// Example:
//
//	m := telemetry.NewMetrics(telemetry.WithNamespace("myapp"))
//	http.Handle("/metrics", promhttp.Handler())
//
// All Metrics methods are safe on a nil receiver, so instrumentation is
// optional.
//
// # OpenTelemetry
//
// Tracer resolves a tracer from the global provider. Configure the provider
// in main() before creating stagers; otherwise spans are no-ops.
package telemetry
