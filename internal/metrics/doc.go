// Package metrics records run metrics for rstprep.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing unless enabled:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	// ... run the pipeline with rec ...
//	_ = metrics.WriteTextfile(path, reg)
//
// rstprep is a one-shot command, so instead of serving /metrics the
// registry is written in the node-exporter textfile format after each run.
package metrics
