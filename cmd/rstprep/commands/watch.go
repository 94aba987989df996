package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/rstprep/internal/pipeline"
	"git.home.luguber.info/inful/rstprep/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Interval     time.Duration `help:"Also rerun on this interval (0 disables)" default:"0s"`
	Debounce     time.Duration `help:"Quiet period after the last change before a run" default:"2s"`
	SkipPrebuild bool          `name:"skip-prebuild" help:"Do not run the pre-build script"`
	SkipBuild    bool          `name:"skip-build" help:"Stop after rewriting and de-numbering"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline(cfg, g.Out)
	defer cleanup()
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(cfg.Documents))
	for _, doc := range cfg.Documents {
		sources = append(sources, doc.Source)
	}

	opts := pipeline.Options{SkipPreBuild: w.SkipPrebuild, SkipBuild: w.SkipBuild}
	watcher, err := watch.New(sources, func(ctx context.Context, _ string) error {
		_, err := p.Run(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}
	return watcher.WithDebounce(w.Debounce).WithInterval(w.Interval).Run(ctx)
}
