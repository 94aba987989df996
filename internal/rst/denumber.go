package rst

import (
	"os"
	"strings"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
)

const (
	DefaultDecoration = "====="
	DefaultHeading    = ".. rubric::"
)

// Denumberer turns the decorated first title of a document into a rubric,
// which Sphinx does not number.
type Denumberer struct {
	Decoration string
	Heading    string
}

// NewDenumberer returns a Denumberer; empty arguments select the defaults.
func NewDenumberer(decoration, heading string) *Denumberer {
	if decoration == "" {
		decoration = DefaultDecoration
	}
	if heading == "" {
		heading = DefaultHeading
	}
	return &Denumberer{Decoration: decoration, Heading: heading}
}

// DenumberContent removes up to two decoration lines around the first title
// and prefixes the title with the heading token. Documents shorter than two
// lines are rejected.
func (d *Denumberer) DenumberContent(content string) (string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return "", rerrors.DocumentTooShort("", len(lines))
	}

	removed := 0
	for removed < 2 && len(lines) > 1 && d.isDecoration(lines[0]) {
		lines = lines[1:]
		removed++
	}
	// underline below the title
	if removed < 2 && len(lines) > 1 && d.isDecoration(lines[1]) {
		lines = append(lines[:1], lines[2:]...)
	}

	lines[0] = d.Heading + " " + lines[0]
	return strings.Join(lines, "\n"), nil
}

// DenumberFile applies DenumberContent to the file at path in place.
func (d *Denumberer) DenumberFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return rerrors.RewriteFailed(path, err)
	}

	out, err := d.DenumberContent(string(data))
	if err != nil {
		if re, ok := rerrors.As(err); ok {
			re.WithContext("path", path)
		}
		return err
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return rerrors.RewriteFailed(path, err)
	}
	return nil
}

func (d *Denumberer) isDecoration(line string) bool {
	return strings.HasPrefix(line, d.Decoration)
}
