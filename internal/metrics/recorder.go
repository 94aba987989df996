package metrics

import "time"

// ResultLabel enumerates result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	// ResultNonZero marks an external command that ran but exited non-zero.
	ResultNonZero ResultLabel = "nonzero"
)

// Recorder defines observability hooks for pipeline metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	AddDocumentsRewritten(level int, n int)
	AddIncludesDiscovered(level int, n int)
	IncExternalCommand(command string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: complete|incomplete|failed
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) AddDocumentsRewritten(int, int)             {}
func (NoopRecorder) AddIncludesDiscovered(int, int)             {}
func (NoopRecorder) IncExternalCommand(string, ResultLabel)     {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
