package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/rstprep/cmd/rstprep/commands"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("rstprep"),
		kong.Description("Prepare reST documents for Sphinx and build the combined site"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	global := &commands.Global{Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		cancel()
		rerrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
