package modgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/diagnostics"
)

func writeModule(t *testing.T, dir, dottedPath, src string) {
	t.Helper()
	rel := filepath.Join(strings.Split(dottedPath, ".")...) + SourceExt
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestFilePathForReplacesDotsWithSeparator(t *testing.T) {
	g := New("/src", arena.New(0), diagnostics.NewSink())
	got := g.FilePathFor("a.b.c")
	want := filepath.Join("/src", "a", "b", "c"+SourceExt)
	assert.Equal(t, want, got)
}

func TestLoadParsesModuleAndPopulatesSymbolTable(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "main", "func run(): int\nreturn 0\nend\n")

	sink := diagnostics.NewSink()
	g := New(dir, arena.New(0), sink)
	m := g.Load("main")

	require.NotNil(t, m)
	require.False(t, sink.HasErrors())
	assert.Equal(t, "main", m.DottedPath)
	require.Len(t, m.AST.Decls, 1)
}

func TestLoadIsIdempotentAndDedupsTransitiveImports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util", "func helper(): int\nreturn 1\nend\n")
	writeModule(t, dir, "a", "from util import helper\nfunc run(): int\nreturn helper()\nend\n")
	writeModule(t, dir, "b", "from util import helper\nfunc run(): int\nreturn helper()\nend\n")
	writeModule(t, dir, "main", "from a import run\nfrom b import run\nfunc entry(): int\nreturn 0\nend\n")

	sink := diagnostics.NewSink()
	g := New(dir, arena.New(0), sink)
	g.Load("main")
	g.Load("a")
	g.Load("b")

	require.False(t, sink.HasErrors())
	assert.Len(t, g.Modules(), 4, "util must be loaded exactly once despite two import paths reaching it")
}

func TestLoadSelfImportCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "cyclic", "from cyclic import helper\nfunc helper(): int\nreturn 1\nend\n")

	sink := diagnostics.NewSink()
	g := New(dir, arena.New(0), sink)

	done := make(chan struct{})
	go func() {
		g.Load("cyclic")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not terminate on a self-importing module")
	}
	assert.Len(t, g.Modules(), 1)
}

func TestLoadMissingModuleEmitsErrorAndReturnsNil(t *testing.T) {
	dir := t.TempDir()
	sink := diagnostics.NewSink()
	g := New(dir, arena.New(0), sink)

	m := g.Load("missing")
	assert.Nil(t, m)
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeModNotFound, sink.Entries()[0].Code)
}
