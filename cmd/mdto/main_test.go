// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mdto/internal/history"
	"github.com/pdiddy/mdto/pkg/types"
)

// copyPandoc copies its input to --output and answers --version.
const copyPandoc = `#!/bin/sh
if [ "$1" = "--version" ]; then echo "pandoc 3.1.11"; echo "Features: +server"; exit 0; fi
in="$1"; out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
cp "$in" "$out"
`

// warnPandoc writes a diagnostic to stderr and exits 0 without output.
const warnPandoc = `#!/bin/sh
echo "Could not find data file templates/eisvogel.latex" >&2
`

func fakePandoc(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script pandoc stand-in needs a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "pandoc")
	require.NoError(t, os.WriteFile(p, []byte(script), 0o755))
	return p
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func newConvertCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "convert", Args: cobra.MinimumNArgs(1), RunE: runConvert}
	addJobFlags(cmd.Flags())
	cmd.Flags().String("reference-doc", "", "")
	return cmd
}

func newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "batch", Args: cobra.ExactArgs(1), RunE: runBatch}
	addJobFlags(cmd.Flags())
	cmd.Flags().String("reference-property", "", "")
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "list", RunE: runHistoryList}
	cmd.Flags().String("history-db", types.DefaultHistoryPath, "")
	cmd.Flags().String("status", "", "")
	cmd.Flags().String("to", "", "")
	cmd.Flags().Int("limit", 0, "")
	cmd.Flags().Bool("json", false, "")
	return cmd
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// jobDirs creates a source file plus empty workspace and output directories.
func jobDirs(t *testing.T) (src, ws, out string) {
	t.Helper()
	dir := t.TempDir()
	src = filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(src, []byte("# Hello\n\nWorld"), 0o644))
	ws = filepath.Join(dir, "ws")
	require.NoError(t, os.Mkdir(ws, 0o755))
	return src, ws, filepath.Join(dir, "out")
}

func TestConvertCommand_WritesOutputAndCleansWorkspace(t *testing.T) {
	bin := fakePandoc(t, copyPandoc)
	src, ws, out := jobDirs(t)

	stdout, _, err := execute(t, newConvertCommand(), src,
		"--pandoc", bin, "--workspace", ws, "--out-dir", out, "--no-history")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(out, "note.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n\nWorld", string(got))
	assert.Empty(t, listDir(t, ws))
	assert.Contains(t, stdout, "converted: note.md -> note.pdf")
	assert.Contains(t, stdout, "wrote:     "+filepath.Join(out, "note.pdf"))
}

func TestConvertCommand_ConfigFileSetsFormat(t *testing.T) {
	bin := fakePandoc(t, copyPandoc)
	src, ws, out := jobDirs(t)

	cfgPath := filepath.Join(t.TempDir(), "mdto.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("job:\n  format: docx\n"), 0o644))

	cmd := newConvertCommand()
	cmd.PreRunE = func(*cobra.Command, []string) error {
		viper.SetConfigFile(cfgPath)
		return viper.ReadInConfig()
	}
	_, _, err := execute(t, cmd, src,
		"--pandoc", bin, "--workspace", ws, "--out-dir", out, "--no-history")
	require.NoError(t, err)
	assert.Equal(t, []string{"note.docx"}, listDir(t, out))
}

func TestConvertCommand_RejectsUnknownFormat(t *testing.T) {
	src, ws, out := jobDirs(t)

	_, _, err := execute(t, newConvertCommand(), src,
		"--to", "html", "--workspace", ws, "--out-dir", out, "--no-history")
	require.ErrorIs(t, err, types.ErrUnsupportedFormat)
	assert.Empty(t, listDir(t, ws))
}

func TestConvertCommand_ContinueOnFailRecordsHistory(t *testing.T) {
	bin := fakePandoc(t, warnPandoc)
	src, ws, out := jobDirs(t)
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, stderr, err := execute(t, newConvertCommand(), src,
		"--pandoc", bin, "--workspace", ws, "--out-dir", out,
		"--history-db", db, "--continue-on-fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 item(s) failed")
	assert.Contains(t, stdout, "failed:    note.md")
	assert.Contains(t, stderr, "Could not find data file")
	assert.Empty(t, listDir(t, ws))
	assert.Empty(t, listDir(t, out))

	listOut, _, err := execute(t, newHistoryListCommand(), "--history-db", db, "--status", "failed")
	require.NoError(t, err)
	assert.Contains(t, listOut, "note.md")
	assert.Contains(t, listOut, "0 converted, 1 failed overall")
}

func TestBatchCommand_ReferenceProperty(t *testing.T) {
	bin := fakePandoc(t, copyPandoc)
	_, ws, out := jobDirs(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ref.docx"), []byte("PK"), 0o644))
	manifestPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`items:
  - json: {title: A}
    binary:
      data: {path: a.md}
      style: {path: ref.docx}
`), 0o644))

	stdout, _, err := execute(t, newBatchCommand(), manifestPath,
		"--pandoc", bin, "--workspace", ws, "--out-dir", out, "--no-history",
		"--to", "docx", "--reference-property", "style")
	require.NoError(t, err)
	assert.Contains(t, stdout, "converted: a.md -> a.docx")
	assert.Equal(t, []string{"a.docx"}, listDir(t, out))
	assert.Empty(t, listDir(t, ws))
}

func TestConvertCommand_SameNameInDifferentDirs(t *testing.T) {
	bin := fakePandoc(t, copyPandoc)
	_, ws, out := jobDirs(t)

	dir := t.TempDir()
	var srcs []string
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o755))
		p := filepath.Join(dir, sub, "note.md")
		require.NoError(t, os.WriteFile(p, []byte("# "+sub), 0o644))
		srcs = append(srcs, p)
	}

	args := append(srcs, "--pandoc", bin, "--workspace", ws, "--out-dir", out, "--no-history")
	_, _, err := execute(t, newConvertCommand(), args...)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"note.pdf", "note-1.pdf"}, listDir(t, out))
	first, err := os.ReadFile(filepath.Join(out, "note.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "# a", string(first))
	second, err := os.ReadFile(filepath.Join(out, "note-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "# b", string(second))
}

func TestHistoryList_IgnoresJobSettings(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	cfgPath := filepath.Join(t.TempDir(), "mdto.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("job:\n  format: html\n"), 0o644))

	cmd := newHistoryListCommand()
	cmd.PreRunE = func(*cobra.Command, []string) error {
		viper.SetConfigFile(cfgPath)
		return viper.ReadInConfig()
	}
	stdout, _, err := execute(t, cmd, "--history-db", db, "--to", "docx")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
	assert.FileExists(t, db)
}

func TestFormatHistoryTable_TruncatesOnRunes(t *testing.T) {
	entries := []history.Entry{{
		ID: 1,
		RunRecord: types.RunRecord{
			FileName:  strings.Repeat("é", 40) + ".md",
			Format:    types.FormatPDF,
			Status:    types.RunFailed,
			Error:     "pandoc error: " + strings.Repeat("文", 50),
			StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}}

	var buf bytes.Buffer
	formatHistoryTable(&buf, entries, history.Summary{Failed: 1})
	out := buf.String()

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("é", 27)+"...")
	assert.Contains(t, out, "pandoc error: "+strings.Repeat("文", 23)+"...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefghij", truncate("abcdefghij", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijk", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestRunDoctor(t *testing.T) {
	bin := fakePandoc(t, copyPandoc)
	ws := t.TempDir()

	cfg := types.Config{
		Converter: types.ConverterConfig{Binary: bin},
		Workspace: types.WorkspaceConfig{Root: ws},
	}.WithDefaults()

	r := runDoctor(context.Background(), cfg)
	assert.Equal(t, "ready", r.Status)
	assert.True(t, r.Pandoc.Found)
	assert.Equal(t, "pandoc 3.1.11", r.Pandoc.Version)
	assert.True(t, r.Workspace.Writable)
	assert.Empty(t, listDir(t, ws))
}

func TestRunDoctor_MissingPandocAndRoot(t *testing.T) {
	cfg := types.Config{
		Converter: types.ConverterConfig{Binary: "mdto-no-such-pandoc"},
		Workspace: types.WorkspaceConfig{Root: filepath.Join(t.TempDir(), "missing")},
	}.WithDefaults()

	r := runDoctor(context.Background(), cfg)
	assert.Equal(t, "errors", r.Status)
	assert.False(t, r.Pandoc.Found)
	assert.False(t, r.Workspace.Writable)
	assert.Len(t, r.Errors, 2)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger("debug", &buf)
	require.NoError(t, err)
	l.Debug("probe")
	assert.Contains(t, buf.String(), "msg=probe")

	_, err = newLogger("loud", &buf)
	assert.Error(t, err)
}
