package rst

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/util/sets"
)

const (
	DefaultMarker    = "include::"
	DefaultExtension = ".rst"
)

// Rewriter rewrites include directive paths.
type Rewriter struct {
	Marker    string
	Extension string
}

// NewRewriter returns a Rewriter; empty arguments select the defaults.
func NewRewriter(marker, extension string) *Rewriter {
	if marker == "" {
		marker = DefaultMarker
	}
	if extension == "" {
		extension = DefaultExtension
	}
	return &Rewriter{Marker: marker, Extension: extension}
}

// RewriteIncludes reads source and returns its content with every include
// argument resolved against baseDir and re-expressed relative to targetDir,
// together with the absolute paths of included reST files.
func (r *Rewriter) RewriteIncludes(source, baseDir, targetDir string) (string, sets.Set[string], error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", nil, rerrors.RewriteFailed(source, err)
	}

	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return "", nil, rerrors.RewriteFailed(source, err)
	}

	includes := sets.New[string]()
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		rewritten, include, err := r.rewriteLine(line, baseDir, absTarget)
		if err != nil {
			return "", nil, err
		}
		lines[i] = rewritten
		if include != "" {
			includes.Add(include)
		}
	}

	return strings.Join(lines, "\n"), includes, nil
}

// rewriteLine returns the line with its include argument rewritten and, when
// the argument names a reST file, that file's absolute path.
func (r *Rewriter) rewriteLine(line, baseDir, targetDir string) (string, string, error) {
	tokens := strings.Fields(line)
	idx := indexOf(tokens, r.Marker)
	if idx < 0 || idx+1 >= len(tokens) {
		return line, "", nil
	}

	abs, err := resolvePath(baseDir, tokens[idx+1])
	if err != nil {
		return "", "", rerrors.RewriteFailed(tokens[idx+1], err)
	}

	copied, err := MaterializeLink(abs)
	if err != nil {
		return "", "", err
	}
	if copied {
		slog.Debug("Replaced symlink with a copy of its target", logfields.Path(abs))
	}

	include := ""
	if r.IsRSTFile(abs) {
		include = abs
	}

	rel, err := filepath.Rel(targetDir, abs)
	if err != nil {
		return "", "", rerrors.RewriteFailed(abs, fmt.Errorf("relative to %s: %w", targetDir, err))
	}
	tokens[idx+1] = rel

	return leadingSpace(line) + strings.Join(tokens, " "), include, nil
}

// Generate rewrites source and writes the result to dest, or back to source
// when dest is empty. It returns the discovered reST includes.
func (r *Rewriter) Generate(source, baseDir, targetDir, dest string) (sets.Set[string], error) {
	content, includes, err := r.RewriteIncludes(source, baseDir, targetDir)
	if err != nil {
		return nil, err
	}

	if dest == "" {
		dest = source
	} else if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return nil, rerrors.RewriteFailed(dest, err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return nil, rerrors.RewriteFailed(dest, err)
	}

	slog.Debug("Rewrote document",
		logfields.Path(source),
		logfields.Target(dest),
		logfields.Count(includes.Len()))
	return includes, nil
}

// IsRSTFile reports whether path has the reST extension and is a regular file.
func (r *Rewriter) IsRSTFile(path string) bool {
	if filepath.Ext(path) != r.Extension {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func resolvePath(baseDir, arg string) (string, error) {
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg), nil
	}
	return filepath.Abs(filepath.Join(baseDir, arg))
}

func indexOf(tokens []string, want string) int {
	for i, t := range tokens {
		if t == want {
			return i
		}
	}
	return -1
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
}
