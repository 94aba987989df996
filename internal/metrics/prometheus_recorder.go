package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	stageResults     *prom.CounterVec
	docsRewritten    *prom.CounterVec
	includesFound    *prom.CounterVec
	externalCommands *prom.CounterVec
	runOutcomes      *prom.CounterVec
	runDuration      prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "rstprep",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rstprep",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		docsRewritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rstprep",
			Name:      "documents_rewritten_total",
			Help:      "Documents rewritten per include level",
		}, []string{"level"}),
		includesFound: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rstprep",
			Name:      "includes_discovered_total",
			Help:      "Distinct reST includes discovered per include level",
		}, []string{"level"}),
		externalCommands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rstprep",
			Name:      "external_commands_total",
			Help:      "External command invocations by result",
		}, []string{"command", "result"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rstprep",
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "rstprep",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline duration",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.docsRewritten, pr.includesFound,
		pr.externalCommands, pr.runOutcomes, pr.runDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) AddDocumentsRewritten(level int, n int) {
	if p == nil {
		return
	}
	p.docsRewritten.WithLabelValues(strconv.Itoa(level)).Add(float64(n))
}

func (p *PrometheusRecorder) AddIncludesDiscovered(level int, n int) {
	if p == nil {
		return
	}
	p.includesFound.WithLabelValues(strconv.Itoa(level)).Add(float64(n))
}

func (p *PrometheusRecorder) IncExternalCommand(command string, result ResultLabel) {
	if p == nil {
		return
	}
	p.externalCommands.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}
