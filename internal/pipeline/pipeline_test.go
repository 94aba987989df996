package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rstprep/internal/builder"
	"git.home.luguber.info/inful/rstprep/internal/config"
	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
	"git.home.luguber.info/inful/rstprep/internal/metrics"
)

type fakeRunner struct {
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (builder.Result, error) {
	f.calls = append(f.calls, name)
	if name == "make" {
		out := filepath.Join(dir, "_build", "html")
		if err := os.MkdirAll(out, 0o750); err != nil {
			return builder.Result{}, err
		}
		if err := os.WriteFile(filepath.Join(out, "index.html"), []byte("ok"), 0o600); err != nil {
			return builder.Result{}, err
		}
	}
	return builder.Result{Command: name, Dir: dir}, nil
}

type memReports struct{ reports []*Report }

func (m *memReports) RecordReport(_ context.Context, r *Report) error {
	m.reports = append(m.reports, r)
	return nil
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// project lays out a miniature TriBITS documentation tree.
func project(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "tribits", "doc")
	title := "==========\n%s\n==========\n\n"

	write(t, filepath.Join(docs, "guides", "maintainers_guide", "TribitsMaintainersGuide.rst"),
		fmt.Sprintf(title, "Maintainers Guide")+".. include:: ../TribitsGuidesBody.rst\n")
	write(t, filepath.Join(docs, "guides", "users_guide", "TribitsUsersGuide.rst"),
		fmt.Sprintf(title, "Users Guide")+".. include:: ../TribitsGuidesBody.rst\n")
	write(t, filepath.Join(docs, "build_ref", "TribitsBuildReference.rst"),
		fmt.Sprintf(title, "Build Reference")+".. include:: TribitsBuildReferenceBody.rst\n")
	write(t, filepath.Join(docs, "guides", "TribitsGuidesBody.rst"),
		"Body\n.. include:: TribitsCoreDetails.rst\n")
	write(t, filepath.Join(docs, "guides", "TribitsCoreDetails.rst"), "Details\n")
	write(t, filepath.Join(docs, "build_ref", "TribitsBuildReferenceBody.rst"), "Ref body\n")
	write(t, filepath.Join(docs, "build_docs.sh"), "#!/bin/sh\n")

	cfg, err := config.Default().Resolve(root)
	require.NoError(t, err)
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := project(t)
	runner := &fakeRunner{}
	reports := &memReports{}
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	var out bytes.Buffer

	p := New(cfg).WithRunner(runner).WithMetrics(rec).WithReports(reports).WithOutput(&out)
	report, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeComplete, report.Outcome)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, reports.reports, 1)
	assert.Equal(t, []string{cfg.Build.PrebuildScript, "make", "make", "make"}, runner.calls)

	maint, _ := cfg.Document("maintainers_guide")
	index, err := os.ReadFile(maint.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, ".. rubric:: Maintainers Guide\n\n.. include:: ../../guides/TribitsGuidesBody.rst\n", string(index))

	body, err := os.ReadFile(filepath.Join(cfg.DocsRoot(), "guides", "TribitsGuidesBody.rst"))
	require.NoError(t, err)
	assert.Equal(t, "Body\n.. include:: ../../guides/TribitsCoreDetails.rst\n", string(body))

	for _, doc := range cfg.Documents {
		assert.FileExists(t, filepath.Join(cfg.Build.CombinedDir, filepath.Base(doc.BuildDir), "index.html"))
	}

	assert.Equal(t, "All includes resolved\n"+
		"===> Generating Sphinx documentation:\n"+
		"===> Generating maintainers_guide\n"+
		"===> Generating users_guide\n"+
		"===> Generating build_ref\n", out.String())

	n, err := testutil.GatherAndCount(reg, "rstprep_run_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_SkipStages(t *testing.T) {
	cfg := project(t)
	runner := &fakeRunner{}

	report, err := New(cfg).WithRunner(runner).WithOutput(&bytes.Buffer{}).
		Run(context.Background(), Options{SkipPreBuild: true, SkipBuild: true})
	require.NoError(t, err)
	assert.Empty(t, runner.calls)
	assert.Nil(t, report.PreBuild)
	assert.Empty(t, report.Builds)
}

func TestRun_MissingIncludeFails(t *testing.T) {
	cfg := project(t)
	write(t, filepath.Join(cfg.DocsRoot(), "guides", "TribitsCoreDetails.rst"), ".. include:: Gone.rst\n")
	reports := &memReports{}

	report, err := New(cfg).WithRunner(&fakeRunner{}).WithReports(reports).WithOutput(&bytes.Buffer{}).
		Run(context.Background(), Options{SkipPreBuild: true})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	require.Len(t, reports.reports, 1)
	assert.Equal(t, err, reports.reports[0].Err)
}

func TestRun_IncompleteTraversal(t *testing.T) {
	cfg := project(t)
	docs := cfg.DocsRoot()
	write(t, filepath.Join(docs, "guides", "TribitsCoreDetails.rst"), ".. include:: Deeper.rst\n")
	write(t, filepath.Join(docs, "guides", "Deeper.rst"), "deep\n")
	var out bytes.Buffer

	report, err := New(cfg).WithRunner(&fakeRunner{}).WithOutput(&out).
		Run(context.Background(), Options{SkipPreBuild: true, SkipBuild: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIncomplete, report.Outcome)
	assert.Equal(t, MessageIncomplete+"\n", out.String())
}

func TestRun_UnknownChildTargetIsConfigError(t *testing.T) {
	cfg := project(t)
	cfg.Traversal.ChildTarget = "nope"

	report, err := New(cfg).WithRunner(&fakeRunner{}).WithOutput(&bytes.Buffer{}).
		Run(context.Background(), Options{SkipPreBuild: true, SkipBuild: true})
	require.Error(t, err)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryConfig))
	assert.Equal(t, 7, rerrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.Equal(t, OutcomeFailed, report.Outcome)
}
