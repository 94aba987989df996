// Package traverse drives include discovery from the top-level documents
// down through the documents they include.
package traverse

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/rstprep/internal/config"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/metrics"
	"git.home.luguber.info/inful/rstprep/internal/util/sets"
)

// Generator rewrites one document and returns the reST files it includes.
// An empty dest means the source is overwritten.
type Generator interface {
	Generate(source, baseDir, targetDir, dest string) (sets.Set[string], error)
}

// LevelStats summarizes one traversal level.
type LevelStats struct {
	Level      int
	Rewritten  int
	Discovered int
	Duration   time.Duration
}

// Result is the outcome of a traversal.
type Result struct {
	Mode      config.TraversalMode
	Levels    []LevelStats
	Processed sets.Set[string]
	// Pending holds includes found at the last level that were not rewritten.
	Pending  []string
	Complete bool
}

// Driver rewrites the top-level documents and then the documents they include.
type Driver struct {
	generator   Generator
	documents   []config.Document
	childTarget string
	mode        config.TraversalMode
	recorder    metrics.Recorder
}

// NewDriver creates a driver. childTarget is the directory nested includes
// are made relative to.
func NewDriver(gen Generator, documents []config.Document, childTarget string, mode config.TraversalMode) *Driver {
	if mode == "" {
		mode = config.TraversalFixed
	}
	return &Driver{
		generator:   gen,
		documents:   documents,
		childTarget: childTarget,
		mode:        mode,
		recorder:    metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (d *Driver) WithRecorder(r metrics.Recorder) *Driver {
	if r != nil {
		d.recorder = r
	}
	return d
}

// Run performs the traversal. Processing stops at the first error.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	slog.Info("Starting include traversal",
		logfields.Mode(string(d.mode)),
		logfields.Count(len(d.documents)),
		logfields.Target(d.childTarget))

	res := &Result{Mode: d.mode}

	children, err := d.topLevel(ctx, res)
	if err != nil {
		return res, err
	}
	processed := children.Clone()

	if d.mode == config.TraversalWorklist {
		err = d.worklist(ctx, res, children, processed)
	} else {
		err = d.fixed(ctx, res, children, processed)
	}
	res.Processed = processed
	return res, err
}

func (d *Driver) topLevel(ctx context.Context, res *Result) (sets.Set[string], error) {
	start := time.Now()
	found := sets.New[string]()
	for _, doc := range d.documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		includes, err := d.generator.Generate(doc.Source, doc.SourceDir, doc.BuildDir, doc.FinalPath)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Name, err)
		}
		slog.Debug("Rewrote top-level document",
			logfields.Document(doc.Name),
			logfields.Path(doc.FinalPath),
			logfields.Count(includes.Len()))
		found.Merge(includes)
	}
	d.record(res, 0, len(d.documents), found, start)
	return found, nil
}

// fixed rewrites the children, the grandchildren not already rewritten as
// children, and reports whatever the grandchildren include as pending.
func (d *Driver) fixed(ctx context.Context, res *Result, children, processed sets.Set[string]) error {
	grandchildren, err := d.rewriteLevel(ctx, res, 1, children)
	if err != nil {
		return err
	}

	pending := grandchildren.Difference(processed)
	greatGrandchildren, err := d.rewriteLevel(ctx, res, 2, pending)
	if err != nil {
		return err
	}
	processed.Merge(pending)

	res.Pending = sets.Sorted(greatGrandchildren)
	res.Complete = greatGrandchildren.Len() == 0
	return nil
}

// worklist keeps rewriting newly found includes until none are left.
func (d *Driver) worklist(ctx context.Context, res *Result, children, processed sets.Set[string]) error {
	queue := children
	for level := 1; queue.Len() > 0; level++ {
		found, err := d.rewriteLevel(ctx, res, level, queue)
		if err != nil {
			return err
		}
		queue = found.Difference(processed)
		processed.Merge(queue)
	}
	res.Complete = true
	return nil
}

// rewriteLevel rewrites every document in docs in place and returns the
// union of their includes.
func (d *Driver) rewriteLevel(ctx context.Context, res *Result, level int, docs sets.Set[string]) (sets.Set[string], error) {
	start := time.Now()
	found := sets.New[string]()
	for _, path := range sets.Sorted(docs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		includes, err := d.generator.Generate(path, filepath.Dir(path), d.childTarget, "")
		if err != nil {
			return nil, fmt.Errorf("level %d include %s: %w", level, path, err)
		}
		found.Merge(includes)
	}
	d.record(res, level, docs.Len(), found, start)
	return found, nil
}

func (d *Driver) record(res *Result, level, rewritten int, found sets.Set[string], start time.Time) {
	stats := LevelStats{
		Level:      level,
		Rewritten:  rewritten,
		Discovered: found.Len(),
		Duration:   time.Since(start),
	}
	res.Levels = append(res.Levels, stats)
	d.recorder.AddDocumentsRewritten(level, rewritten)
	d.recorder.AddIncludesDiscovered(level, found.Len())
	slog.Info("Include level rewritten",
		logfields.Level(level),
		slog.Int("rewritten", rewritten),
		slog.Int("discovered", found.Len()),
		logfields.DurationMS(float64(stats.Duration.Milliseconds())))
}
