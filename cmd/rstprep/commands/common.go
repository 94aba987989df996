package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/history"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/metrics"
	"git.home.luguber.info/inful/rstprep/internal/pipeline"
)

// logLevelEnv overrides the level chosen by --verbose.
const logLevelEnv = "RSTPREP_LOG_LEVEL"

// Global carries state shared by all subcommands.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"rstprep.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)" default:"text" enum:"text,json"`
	Root      string           `help:"Project root (default: enclosing git worktree, else the working directory)" type:"path"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Run the full pipeline: pre-build, rewrite, de-number and build"`
	Rewrite  RewriteCmd  `cmd:"" help:"Rewrite include paths and de-number titles without building"`
	Denumber DenumberCmd `cmd:"" help:"Replace the numbered title of the given files with a rubric"`
	Init     InitCmd     `cmd:"" help:"Write a configuration file holding the default layout"`
	Watch    WatchCmd    `cmd:"" help:"Rerun the pipeline when top-level documents change"`
	History  HistoryCmd  `cmd:"" help:"List recorded pipeline runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.Verbose, c.LogFormat))
	return nil
}

func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(verbose)}
	if config.NormalizeLogFormat(format) == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseLogLevel honours RSTPREP_LOG_LEVEL over the verbose flag.
func parseLogLevel(verbose bool) slog.Level {
	if raw := os.Getenv(logLevelEnv); raw != "" {
		switch config.NormalizeLogLevel(raw) {
		case config.LogLevelDebug:
			return slog.LevelDebug
		case config.LogLevelWarn:
			return slog.LevelWarn
		case config.LogLevelError:
			return slog.LevelError
		default:
			return slog.LevelInfo
		}
	}
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadConfig reads the configuration (or the default layout) and resolves
// its paths against the project root.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return nil, err
	}

	start := root.Root
	if start == "" && cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, rerrors.ProjectRootError(err)
		}
		if start, err = config.DetectProjectRoot(wd); err != nil {
			return nil, rerrors.ProjectRootError(err)
		}
	} else if start != "" {
		cfg.ProjectRoot = start
	}

	resolved, err := cfg.Resolve(start)
	if err != nil {
		return nil, err
	}
	slog.Debug("Resolved configuration",
		logfields.Path(resolved.ProjectRoot),
		slog.String("docs_root", resolved.DocsRoot()),
		logfields.Mode(string(resolved.Traversal.Mode)))
	return resolved, nil
}

// newPipeline wires the metrics textfile and the run history configured in
// cfg. The returned cleanup closes the history store.
func newPipeline(cfg *config.Config, out io.Writer) (*pipeline.Pipeline, func(), error) {
	p := pipeline.New(cfg).WithOutput(out)
	cleanup := func() {}

	if cfg.Metrics.Textfile != "" {
		reg := prom.NewRegistry()
		p.WithMetrics(metrics.NewPrometheusRecorder(reg))
		path := cfg.Metrics.Textfile
		p.AfterRun(func(*pipeline.Report) {
			if err := metrics.WriteTextfile(path, reg); err != nil {
				slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
			}
		})
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, cleanup, err
		}
		p.WithReports(store)
		cleanup = func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close run history", logfields.Error(err))
			}
		}
	}
	return p, cleanup, nil
}
