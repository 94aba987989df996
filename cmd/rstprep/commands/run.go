package commands

import (
	"context"

	"git.home.luguber.info/inful/rstprep/internal/pipeline"
)

// RunCmd implements the default 'run' command.
type RunCmd struct {
	SkipPrebuild bool `name:"skip-prebuild" help:"Do not run the pre-build script"`
	SkipBuild    bool `name:"skip-build" help:"Stop after rewriting and de-numbering"`
	Strict       bool `help:"Fail on non-zero exit status of external commands"`
}

func (r *RunCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if r.Strict {
		cfg.Build.StrictExit = true
	}

	p, cleanup, err := newPipeline(cfg, g.Out)
	defer cleanup()
	if err != nil {
		return err
	}
	_, err = p.Run(ctx, pipeline.Options{SkipPreBuild: r.SkipPrebuild, SkipBuild: r.SkipBuild})
	return err
}

// RewriteCmd implements the 'rewrite' command.
type RewriteCmd struct{}

func (r *RewriteCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	return (&RunCmd{SkipPrebuild: true, SkipBuild: true}).Run(ctx, g, root)
}
