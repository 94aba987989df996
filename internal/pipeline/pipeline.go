// Package pipeline wires the rstprep stages together: pre-build script,
// include traversal, title de-numbering and the per-document site builds.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/rstprep/internal/builder"
	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/metrics"
	"git.home.luguber.info/inful/rstprep/internal/rst"
	"git.home.luguber.info/inful/rstprep/internal/traverse"
)

// Stage names used in logs and metrics.
const (
	StagePreBuild = "prebuild"
	StageRewrite  = "rewrite"
	StageDenumber = "denumber"
	StageBuild    = "build"
)

// Completion messages printed after the traversal.
const (
	MessageComplete   = "All includes resolved"
	MessageIncomplete = "Includes remain unresolved beyond the traversal depth"
)

// Run outcomes.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
)

// Options selects which stages run.
type Options struct {
	SkipPreBuild bool
	SkipBuild    bool
}

// Report summarizes a pipeline run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Traversal *traverse.Result
	PreBuild  *builder.Result
	Builds    []builder.Result
	Outcome   string
	Err       error
}

// Recorder receives finished reports, e.g. the run history.
type Recorder interface {
	RecordReport(ctx context.Context, r *Report) error
}

// Pipeline runs the stages for one resolved configuration.
type Pipeline struct {
	cfg          *config.Config
	runner       builder.Runner
	metrics      metrics.Recorder
	reports      Recorder
	out          io.Writer
	now          func() time.Time
	newID        func() string
	afterRunHook func(*Report)
}

// New creates a pipeline. cfg must already be resolved to absolute paths.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		runner:  builder.NewExecRunner(),
		metrics: metrics.NoopRecorder{},
		out:     os.Stdout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithRunner replaces the external command runner.
func (p *Pipeline) WithRunner(r builder.Runner) *Pipeline {
	if r != nil {
		p.runner = r
	}
	return p
}

// WithMetrics injects a metrics recorder.
func (p *Pipeline) WithMetrics(r metrics.Recorder) *Pipeline {
	if r != nil {
		p.metrics = r
	}
	return p
}

// WithReports injects a sink for finished reports.
func (p *Pipeline) WithReports(r Recorder) *Pipeline {
	p.reports = r
	return p
}

// WithOutput redirects user-facing progress lines.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	if w != nil {
		p.out = w
	}
	return p
}

// AfterRun registers a hook called with every finished report.
func (p *Pipeline) AfterRun(fn func(*Report)) *Pipeline {
	p.afterRunHook = fn
	return p
}

// Run executes the pipeline. The report is returned even on failure.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{RunID: p.newID(), Started: p.now()}
	log := slog.Default().With(logfields.RunID(report.RunID))
	log.Info("Starting rstprep run",
		slog.String("docs_root", p.cfg.DocsRoot()),
		logfields.Count(len(p.cfg.Documents)))

	err := p.run(ctx, opts, report, log)

	report.Finished = p.now()
	report.Err = err
	switch {
	case err != nil:
		report.Outcome = OutcomeFailed
	case report.Traversal != nil && !report.Traversal.Complete:
		report.Outcome = OutcomeIncomplete
	default:
		report.Outcome = OutcomeComplete
	}
	p.metrics.IncRunOutcome(report.Outcome)
	p.metrics.ObserveRunDuration(report.Finished.Sub(report.Started))

	if p.reports != nil {
		if rerr := p.reports.RecordReport(ctx, report); rerr != nil {
			log.Warn("Failed to record run", logfields.Error(rerr))
		}
	}
	if p.afterRunHook != nil {
		p.afterRunHook(report)
	}

	if err != nil {
		log.Error("Run failed", logfields.Error(err))
		return report, err
	}
	log.Info("Run finished", slog.String("outcome", report.Outcome))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, opts Options, report *Report, log *slog.Logger) error {
	orch := builder.NewOrchestrator(p.runner, p.cfg.Build).
		WithRecorder(p.metrics).
		WithOutput(p.out)

	if !opts.SkipPreBuild {
		if err := p.stage(log, StagePreBuild, func() error {
			res, err := orch.PreBuild(ctx)
			report.PreBuild = res
			return err
		}); err != nil {
			return err
		}
	}

	if err := p.rewrite(ctx, report, log); err != nil {
		return err
	}

	if opts.SkipBuild {
		return nil
	}
	return p.stage(log, StageBuild, func() error {
		results, err := orch.BuildAll(ctx, p.cfg.Documents)
		report.Builds = results
		return err
	})
}

// rewrite runs the traversal and the de-numbering stages.
func (p *Pipeline) rewrite(ctx context.Context, report *Report, log *slog.Logger) error {
	childTarget, ok := p.cfg.Document(p.cfg.Traversal.ChildTarget)
	if !ok {
		return rerrors.ConfigInvalid("traversal.child_target",
			fmt.Sprintf("unknown document %q", p.cfg.Traversal.ChildTarget))
	}

	rewriter := rst.NewRewriter(p.cfg.Rewrite.Marker, p.cfg.Rewrite.Extension)
	driver := traverse.NewDriver(rewriter, p.cfg.Documents, childTarget.BuildDir, p.cfg.Traversal.Mode).
		WithRecorder(p.metrics)

	if err := p.stage(log, StageRewrite, func() error {
		res, err := driver.Run(ctx)
		report.Traversal = res
		return err
	}); err != nil {
		return err
	}

	if report.Traversal.Complete {
		_, _ = fmt.Fprintln(p.out, MessageComplete)
	} else {
		_, _ = fmt.Fprintln(p.out, MessageIncomplete)
		log.Warn("Includes left unresolved", logfields.Count(len(report.Traversal.Pending)),
			slog.Any("pending", report.Traversal.Pending))
	}

	denumberer := rst.NewDenumberer(p.cfg.Denumber.Decoration, p.cfg.Denumber.Heading)
	return p.stage(log, StageDenumber, func() error {
		for _, doc := range p.cfg.Documents {
			if err := denumberer.DenumberFile(doc.FinalPath); err != nil {
				return fmt.Errorf("document %s: %w", doc.Name, err)
			}
		}
		return nil
	})
}

// stage times fn and records its result.
func (p *Pipeline) stage(log *slog.Logger, name string, fn func() error) error {
	log.Info("Starting stage", logfields.Stage(name))
	start := p.now()
	err := fn()
	d := p.now().Sub(start)
	p.metrics.ObserveStageDuration(name, d)
	if err != nil {
		p.metrics.IncStageResult(name, metrics.ResultFailed)
		log.Error("Stage failed", logfields.Stage(name), logfields.Error(err))
		return err
	}
	p.metrics.IncStageResult(name, metrics.ResultSuccess)
	log.Info("Stage completed successfully", logfields.Stage(name),
		logfields.DurationMS(float64(d)/float64(time.Millisecond)))
	return nil
}
