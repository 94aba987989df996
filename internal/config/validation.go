package config

import (
	"fmt"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/util/sets"
)

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if len(c.Documents) == 0 {
		return rerrors.ConfigInvalid("documents", "at least one document is required")
	}

	names := sets.New[string]()
	for i, d := range c.Documents {
		field := fmt.Sprintf("documents[%d]", i)
		if d.Name == "" {
			return rerrors.ConfigInvalid(field+".name", "must not be empty")
		}
		if names.Has(d.Name) {
			return rerrors.ConfigInvalid(field+".name", fmt.Sprintf("duplicate document name %q", d.Name))
		}
		names.Add(d.Name)

		for _, p := range []struct{ key, val string }{
			{"source", d.Source},
			{"source_dir", d.SourceDir},
			{"final_path", d.FinalPath},
			{"build_dir", d.BuildDir},
		} {
			if p.val == "" {
				return rerrors.ConfigInvalid(field+"."+p.key, "must not be empty")
			}
		}
	}

	if !names.Has(c.Traversal.ChildTarget) {
		return rerrors.ConfigInvalid("traversal.child_target",
			fmt.Sprintf("unknown document %q", c.Traversal.ChildTarget))
	}
	if err := traversalModes.Validate(string(c.Traversal.Mode)); err != nil {
		return rerrors.ConfigInvalid("traversal.mode", err.Error())
	}
	if c.Rewrite.Marker == "" {
		return rerrors.ConfigInvalid("rewrite.marker", "must not be empty")
	}
	if c.Denumber.Decoration == "" {
		return rerrors.ConfigInvalid("denumber.decoration", "must not be empty")
	}
	if len(c.Build.Command) == 0 {
		return rerrors.ConfigInvalid("build.command", "must not be empty")
	}
	if c.Build.Timeout < 0 {
		return rerrors.ConfigInvalid("build.timeout", "must not be negative")
	}
	return nil
}
