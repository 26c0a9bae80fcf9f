package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestBinary builds the anchor binary for subprocess testing.
func buildTestBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "anchor-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), "building test binary: %s", stderr.String())
	return binaryPath
}

func TestMainNoArgumentsPrintsUsage(t *testing.T) {
	binary := buildTestBinary(t)
	var stderr bytes.Buffer
	cmd := exec.Command(binary)
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestMainUnknownCommandPrintsUsage(t *testing.T) {
	binary := buildTestBinary(t)
	var stderr bytes.Buffer
	cmd := exec.Command(binary, "frobnicate")
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestMainRunCompilesAndExecutesFile(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not found on PATH")
	}
	binary := buildTestBinary(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "main.anc")
	require.NoError(t, os.WriteFile(file, []byte("func main(): int\nreturn 0\nend\n"), 0o644))

	cmd := exec.Command(binary, "run", file)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	assert.NoError(t, err, "stderr: %s", stderr.String())
}

func TestMainBuildReportsDiagnosticsAndNonzeroExit(t *testing.T) {
	binary := buildTestBinary(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anchor"), []byte("name demo\nentry main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.anc"), []byte("func main(): int\nreturn \"nope\"\nend\n"), 0o644))

	cmd := exec.Command(binary, "build", dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.Error(t, err)
	assert.NotEmpty(t, stderr.String())
}

func TestMainLexerPrintsTokenStream(t *testing.T) {
	binary := buildTestBinary(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "main.anc")
	require.NoError(t, os.WriteFile(file, []byte("func main(): int\nreturn 0\nend\n"), 0o644))

	cmd := exec.Command(binary, "lexer", file)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	require.NoError(t, cmd.Run())
	assert.Contains(t, stdout.String(), "func")
	assert.Contains(t, stdout.String(), "EOF")
}

func TestMainASTPrintsParsedTree(t *testing.T) {
	binary := buildTestBinary(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "main.anc")
	require.NoError(t, os.WriteFile(file, []byte("func main(): int\nreturn 0\nend\n"), 0o644))

	cmd := exec.Command(binary, "ast", file)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	require.NoError(t, cmd.Run())
	assert.Contains(t, stdout.String(), "DeclFunc main")
	assert.Contains(t, stdout.String(), "StmtReturn")
}
