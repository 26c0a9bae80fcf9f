// Package driver wires the compiler core to the host C compiler: manifest
// loading, pipeline staging into build or temp directories, the gcc
// invocation, and the run path for single-file programs.
package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/codegen"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/manifest"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/sem"
	"github.com/anchorlang/anchor/internal/types"
)

// Logf prints a verbose-gated progress line to stderr.
func Logf(verbose bool, format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Result is what a compile produced: the generated sources, the sink every
// diagnostic from lexing through semantic analysis was pushed to, and (once
// the host compiler has run) its combined output and, when it succeeded,
// the executable's path. A failing host compiler is reported through the
// returned error, not through a field here.
type Result struct {
	Sink       *diagnostics.Sink
	Units      map[string]*codegen.Unit
	Executable string
	CCOutput   string
}

// compile loads the entry module (and its imports) from srcDir, analyzes
// them, and lowers them to C if the sink stays clean. The backend is
// never entered when diagnostics carry an error.
func compile(srcDir, pkgName, entry string, verbose bool) *Result {
	sink := diagnostics.NewSink()
	a := arena.New(0)
	reg := types.NewRegistry(a)
	graph := modgraph.New(srcDir, a, sink)

	Logf(verbose, "loading module %q from %s", entry, srcDir)
	graph.Load(entry)

	Logf(verbose, "running semantic analysis")
	sem.New(reg, sink, graph).Analyze()

	res := &Result{Sink: sink}
	if sink.HasErrors() {
		return res
	}

	Logf(verbose, "lowering to C")
	res.Units = codegen.New(pkgName, graph, entry).Generate()
	return res
}

// writeUnits writes every generated header/source pair into outDir,
// returning the list of .c file paths gcc needs on its command line (the
// .h files are included by name, never compiled directly).
func writeUnits(outDir string, units map[string]*codegen.Unit) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	var sources []string
	for _, u := range units {
		hPath := filepath.Join(outDir, u.HeaderName)
		cPath := filepath.Join(outDir, u.SourceName)
		if err := os.WriteFile(hPath, []byte(u.Header), 0o644); err != nil {
			return nil, fmt.Errorf("driver: writing %s: %w", hPath, err)
		}
		if err := os.WriteFile(cPath, []byte(u.Source), 0o644); err != nil {
			return nil, fmt.Errorf("driver: writing %s: %w", cPath, err)
		}
		sources = append(sources, cPath)
	}
	return sources, nil
}

// binaryName appends the platform executable suffix where one exists.
func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// invokeCC runs the host C compiler, `gcc -std=c99 -o <out> <sources...>`,
// synchronously, with combined output captured for the caller to forward
// verbatim on failure.
func invokeCC(sources []string, out string, verbose bool) (string, error) {
	args := append([]string{"-std=c99", "-o", out}, sources...)
	Logf(verbose, "gcc %v", args)
	cmd := exec.Command("gcc", args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Build implements `build [dir]`: read dir/anchor, compile the named
// entry module, and link into dir/build/<name>[.exe].
func Build(dir string, verbose bool) (*Result, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	res := compile(dir, m.Name, m.Entry, verbose)
	if res.Sink.HasErrors() {
		return res, nil
	}

	outDir := filepath.Join(dir, "build")
	sources, err := writeUnits(outDir, res.Units)
	if err != nil {
		return nil, err
	}

	exe := filepath.Join(outDir, binaryName(m.Name))
	output, ccErr := invokeCC(sources, exe, verbose)
	res.CCOutput = output
	if ccErr != nil {
		return res, fmt.Errorf("driver: host C compiler failed: %w", ccErr)
	}
	res.Executable = exe
	return res, nil
}

// Run implements `run <file>`: compile a single bare .anc file into a
// temp directory and execute the resulting binary, with stdout and stderr
// wired through to the calling process.
func Run(file string, verbose bool) (*Result, error) {
	srcDir := filepath.Dir(file)
	base := filepath.Base(file)
	entry := base[:len(base)-len(filepath.Ext(base))]

	tmp, err := os.MkdirTemp("", "anchor-run-")
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	defer os.RemoveAll(tmp)

	// A bare file compiled outside a package has no manifest; synthesize a
	// one-module package whose name and entry are the file's base name.
	Logf(verbose, "synthesizing single-file package %q", entry)
	res := compile(srcDir, entry, entry, verbose)
	if res.Sink.HasErrors() {
		return res, nil
	}

	sources, err := writeUnits(tmp, res.Units)
	if err != nil {
		return nil, err
	}

	exe := filepath.Join(tmp, binaryName(entry))
	output, ccErr := invokeCC(sources, exe, verbose)
	res.CCOutput = output
	if ccErr != nil {
		return res, fmt.Errorf("driver: host C compiler failed: %w", ccErr)
	}
	res.Executable = exe

	Logf(verbose, "running %s", exe)
	cmd := exec.Command(exe)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return res, fmt.Errorf("driver: %w", err)
	}
	return res, nil
}
