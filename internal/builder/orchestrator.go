// Package builder runs the external documentation tools and gathers their
// output into the combined directory.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/metrics"
)

// Orchestrator runs the pre-build script and the per-document site builds.
type Orchestrator struct {
	runner   Runner
	cfg      config.BuildConfig
	recorder metrics.Recorder
	out      io.Writer
}

// NewOrchestrator creates an orchestrator for an already resolved build config.
func NewOrchestrator(runner Runner, cfg config.BuildConfig) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		out:      os.Stdout,
	}
}

// WithRecorder injects a metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	if r != nil {
		o.recorder = r
	}
	return o
}

// WithOutput redirects progress lines.
func (o *Orchestrator) WithOutput(w io.Writer) *Orchestrator {
	if w != nil {
		o.out = w
	}
	return o
}

// PreBuild runs the pre-build script from its own directory. A missing
// script setting skips the step.
func (o *Orchestrator) PreBuild(ctx context.Context) (*Result, error) {
	if o.cfg.PrebuildScript == "" {
		slog.Info("No pre-build script configured, skipping")
		return nil, nil
	}
	res, err := o.run(ctx, filepath.Dir(o.cfg.PrebuildScript), o.cfg.PrebuildScript)
	return &res, err
}

// BuildAll builds and combines every document in order.
func (o *Orchestrator) BuildAll(ctx context.Context, docs []config.Document) ([]Result, error) {
	_, _ = fmt.Fprintln(o.out, "===> Generating Sphinx documentation:")
	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		res, err := o.BuildDocument(ctx, doc)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// BuildDocument runs the site generator in the document's build directory
// and moves the output into the combined directory.
func (o *Orchestrator) BuildDocument(ctx context.Context, doc config.Document) (Result, error) {
	_, _ = fmt.Fprintf(o.out, "===> Generating %s\n", doc.Name)

	res, err := o.run(ctx, doc.BuildDir, o.cfg.Command[0], o.cfg.Command[1:]...)
	if err != nil {
		return res, fmt.Errorf("document %s: %w", doc.Name, err)
	}
	if err := o.Combine(doc); err != nil {
		return res, err
	}
	return res, nil
}

// Combine renames <build_dir>/<output_subdir> after the build directory and
// copies it to <combined_dir>/<name>. Leftovers of an earlier run at either
// destination are removed first.
func (o *Orchestrator) Combine(doc config.Document) error {
	name := filepath.Base(doc.BuildDir)
	output := filepath.Join(doc.BuildDir, o.cfg.OutputSubdir)
	renamed := filepath.Join(filepath.Dir(output), name)
	combined := filepath.Join(o.cfg.CombinedDir, name)

	if err := os.RemoveAll(renamed); err != nil {
		return rerrors.CombineFailed(doc.Name, err)
	}
	if err := os.Rename(output, renamed); err != nil {
		return rerrors.CombineFailed(doc.Name, err)
	}
	if err := os.RemoveAll(combined); err != nil {
		return rerrors.CombineFailed(doc.Name, err)
	}
	if err := CopyDir(renamed, combined); err != nil {
		return rerrors.CombineFailed(doc.Name, err)
	}

	slog.Info("Combined build output", logfields.Document(doc.Name), logfields.Path(combined))
	return nil
}

// run executes one command under the configured timeout and applies the
// exit status policy.
func (o *Orchestrator) run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	label := filepath.Base(name)
	res, err := o.runner.Run(ctx, dir, name, args...)
	if err != nil {
		o.recorder.IncExternalCommand(label, metrics.ResultFailed)
		return res, err
	}

	attrs := []any{
		logfields.Command(res.Command),
		logfields.Dir(dir),
		logfields.ExitCode(res.ExitCode),
		logfields.DurationMS(float64(res.Duration) / float64(time.Millisecond)),
	}
	if res.ExitCode == 0 {
		o.recorder.IncExternalCommand(label, metrics.ResultSuccess)
		slog.Info("External command finished", attrs...)
		return res, nil
	}

	o.recorder.IncExternalCommand(label, metrics.ResultNonZero)
	if o.cfg.StrictExit {
		return res, rerrors.ExternalCommandFailed(res.Command, res.ExitCode)
	}
	slog.Warn("External command exited with non-zero status, continuing", attrs...)
	return res, nil
}
