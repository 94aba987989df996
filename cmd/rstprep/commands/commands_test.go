package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("rstprep"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, cli)
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// docsTree creates the default document layout under a fresh project root.
// Nested documents carry no includes so repeated runs stay valid.
func docsTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "tribits", "doc")
	writeFile(t, filepath.Join(docs, "guides", "maintainers_guide", "TribitsMaintainersGuide.rst"),
		"=====\nMaintainers\n=====\n\n.. include:: ../Shared.rst\n")
	writeFile(t, filepath.Join(docs, "guides", "users_guide", "TribitsUsersGuide.rst"),
		"=====\nUsers\n=====\n\n.. include:: ../Shared.rst\n")
	writeFile(t, filepath.Join(docs, "build_ref", "TribitsBuildReference.rst"),
		"Build Reference\n=====\n")
	writeFile(t, filepath.Join(docs, "guides", "Shared.rst"), "Shared text\n")
	return root
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rstprep.yaml")

	out, err := runCLI(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, err = runCLI(t, "--config", path, "init")
	require.Error(t, err)

	_, err = runCLI(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestDenumberCmd(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.rst")
	original := "=====\nTitle\n=====\n\nBody\n"
	writeFile(t, file, original)
	cfgPath := filepath.Join(dir, "missing.yaml")

	t.Run("dry run prints and leaves the file", func(t *testing.T) {
		out, err := runCLI(t, "--config", cfgPath, "denumber", "--dry-run", file)
		require.NoError(t, err)
		assert.Equal(t, ".. rubric:: Title\n\nBody\n", out)

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, original, string(data))
	})

	t.Run("rewrites in place", func(t *testing.T) {
		_, err := runCLI(t, "--config", cfgPath, "denumber", file)
		require.NoError(t, err)

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, ".. rubric:: Title\n\nBody\n", string(data))
	})

	t.Run("too short document fails", func(t *testing.T) {
		short := filepath.Join(dir, "short.rst")
		writeFile(t, short, "Title")
		_, err := runCLI(t, "--config", cfgPath, "denumber", short)
		require.Error(t, err)
	})
}

func TestRewriteCmd(t *testing.T) {
	root := docsTree(t)
	cfgPath := filepath.Join(t.TempDir(), "rstprep.yaml")

	out, err := runCLI(t, "--config", cfgPath, "--root", root, "rewrite")
	require.NoError(t, err)
	assert.Equal(t, "All includes resolved\n", out)

	data, err := os.ReadFile(filepath.Join(root, "tribits", "doc", "sphinx", "users_guide", "index.rst"))
	require.NoError(t, err)
	assert.Equal(t, ".. rubric:: Users\n\n.. include:: ../../guides/Shared.rst\n", string(data))
}

func TestRunCmd_RecordsHistoryAndMetrics(t *testing.T) {
	root := docsTree(t)
	state := t.TempDir()
	cfgPath := filepath.Join(state, "rstprep.yaml")
	dbPath := filepath.Join(state, "history", "runs.db")
	promPath := filepath.Join(state, "rstprep.prom")
	writeFile(t, cfgPath, "history:\n  path: "+dbPath+"\nmetrics:\n  textfile: "+promPath+"\n")

	for i := 0; i < 2; i++ {
		_, err := runCLI(t, "--config", cfgPath, "--root", root, "run", "--skip-prebuild", "--skip-build")
		require.NoError(t, err)
	}

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `rstprep_run_outcomes_total{outcome="complete"} 1`)

	out, err := runCLI(t, "--config", cfgPath, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "OUTCOME")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("complete")))
}

func TestHistoryCmd_Disabled(t *testing.T) {
	out, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv(logLevelEnv, "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv(logLevelEnv, "WARN")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(true))

	t.Setenv(logLevelEnv, "error")
	assert.Equal(t, slog.LevelError, parseLogLevel(false))
}
