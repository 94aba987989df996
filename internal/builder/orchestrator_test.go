package builder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
)

// fakeRunner emulates `make html` by creating <dir>/_build/html/index.html.
type fakeRunner struct {
	calls    [][]string
	dirs     []string
	exitCode int
	noOutput bool
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.dirs = append(f.dirs, dir)
	if name == "make" && !f.noOutput {
		out := filepath.Join(dir, "_build", "html")
		if err := os.MkdirAll(out, 0o750); err != nil {
			return Result{}, err
		}
		if err := os.WriteFile(filepath.Join(out, "index.html"), []byte(filepath.Base(dir)), 0o600); err != nil {
			return Result{}, err
		}
	}
	return Result{Command: name, Dir: dir, ExitCode: f.exitCode}, nil
}

func setup(t *testing.T) (config.BuildConfig, []config.Document) {
	t.Helper()
	root := t.TempDir()
	cfg := config.BuildConfig{
		PrebuildScript: filepath.Join(root, "build_docs.sh"),
		Command:        []string{"make", "html"},
		OutputSubdir:   filepath.Join("_build", "html"),
		CombinedDir:    filepath.Join(root, "sphinx", "combined_docs"),
	}
	var docs []config.Document
	for _, name := range []string{"maintainers_guide", "users_guide", "build_ref"} {
		dir := filepath.Join(root, "sphinx", name)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		docs = append(docs, config.Document{Name: name, BuildDir: dir})
	}
	return cfg, docs
}

func TestPreBuild_RunsFromScriptDir(t *testing.T) {
	cfg, _ := setup(t)
	runner := &fakeRunner{}

	res, err := NewOrchestrator(runner, cfg).PreBuild(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, [][]string{{cfg.PrebuildScript}}, runner.calls)
	assert.Equal(t, filepath.Dir(cfg.PrebuildScript), runner.dirs[0])
}

func TestPreBuild_Skipped(t *testing.T) {
	runner := &fakeRunner{}
	res, err := NewOrchestrator(runner, config.BuildConfig{Command: []string{"make"}}).PreBuild(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, runner.calls)
}

func TestBuildAll_CombinesEveryDocument(t *testing.T) {
	cfg, docs := setup(t)
	runner := &fakeRunner{}
	var out bytes.Buffer

	results, err := NewOrchestrator(runner, cfg).WithOutput(&out).BuildAll(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, doc := range docs {
		assert.Equal(t, []string{"make", "html"}, runner.calls[i])
		assert.Equal(t, doc.BuildDir, runner.dirs[i])

		renamed := filepath.Join(doc.BuildDir, "_build", doc.Name, "index.html")
		assert.FileExists(t, renamed)
		assert.NoDirExists(t, filepath.Join(doc.BuildDir, "_build", "html"))

		got, err := os.ReadFile(filepath.Join(cfg.CombinedDir, doc.Name, "index.html"))
		require.NoError(t, err)
		assert.Equal(t, doc.Name, string(got))
	}
	assert.Equal(t, "===> Generating Sphinx documentation:\n"+
		"===> Generating maintainers_guide\n"+
		"===> Generating users_guide\n"+
		"===> Generating build_ref\n", out.String())
}

func TestBuildAll_Rerun(t *testing.T) {
	cfg, docs := setup(t)
	o := NewOrchestrator(&fakeRunner{}, cfg).WithOutput(&bytes.Buffer{})

	_, err := o.BuildAll(context.Background(), docs)
	require.NoError(t, err)
	_, err = o.BuildAll(context.Background(), docs)
	require.NoError(t, err, "stale output from an earlier run is replaced")
}

func TestBuildDocument_MissingOutputFails(t *testing.T) {
	cfg, docs := setup(t)
	runner := &fakeRunner{noOutput: true, exitCode: 2}

	_, err := NewOrchestrator(runner, cfg).WithOutput(&bytes.Buffer{}).BuildDocument(context.Background(), docs[0])
	require.Error(t, err)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryBuild))
}

func TestNonZeroExit_Policy(t *testing.T) {
	cfg, docs := setup(t)

	t.Run("lenient", func(t *testing.T) {
		res, err := NewOrchestrator(&fakeRunner{exitCode: 2}, cfg).
			WithOutput(&bytes.Buffer{}).
			BuildDocument(context.Background(), docs[1])
		require.NoError(t, err)
		assert.Equal(t, 2, res.ExitCode)
	})

	t.Run("strict", func(t *testing.T) {
		strict := cfg
		strict.StrictExit = true
		_, err := NewOrchestrator(&fakeRunner{exitCode: 2}, strict).
			WithOutput(&bytes.Buffer{}).
			BuildDocument(context.Background(), docs[2])
		require.Error(t, err)
		assert.True(t, rerrors.IsCategory(err, rerrors.CategoryExternal))
	})
}
