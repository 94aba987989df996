package commands

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/rst"
)

// DenumberCmd implements the 'denumber' command.
type DenumberCmd struct {
	Files  []string `arg:"" name:"file" help:"reST files to de-number"`
	DryRun bool     `name:"dry-run" help:"Print the result instead of writing it"`
}

func (d *DenumberCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}
	denumberer := rst.NewDenumberer(cfg.Denumber.Decoration, cfg.Denumber.Heading)

	for _, file := range d.Files {
		if !d.DryRun {
			if err := denumberer.DenumberFile(file); err != nil {
				return err
			}
			slog.Info("De-numbered document", logfields.Path(file))
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return rerrors.RewriteFailed(file, err)
		}
		out, err := denumberer.DenumberContent(string(data))
		if err != nil {
			return err
		}
		if len(d.Files) > 1 {
			_, _ = fmt.Fprintf(g.Out, "==> %s <==\n", file)
		}
		_, _ = fmt.Fprint(g.Out, out)
	}
	return nil
}
