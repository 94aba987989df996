package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
)

// Result describes one finished external command.
type Result struct {
	Command  string
	Dir      string
	ExitCode int
	Duration time.Duration
}

// Runner runs an external command in dir and waits for it. A command that
// runs and exits non-zero is not an error; its status is in Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner attached to the process's stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	res := Result{
		Command: strings.Join(append([]string{name}, args...), " "),
		Dir:     dir,
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	slog.Debug("Running external command", logfields.Command(res.Command), logfields.Dir(dir))
	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	case ctx.Err() != nil:
		res.ExitCode = -1
		return res, rerrors.ExternalCommandStart(res.Command, ctx.Err())
	default:
		res.ExitCode = -1
		return res, rerrors.ExternalCommandStart(res.Command, err)
	}
}
