package lsp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/sem"
	"github.com/anchorlang/anchor/internal/types"
)

// ServerName is reported in InitializeResult.ServerInfo.Name and as every
// published diagnostic's Source.
const ServerName = "anchor"

// Engine is the transport-independent core of the editor-protocol
// server, split from the length-prefixed framing loop so tests can drive
// it without a stream. workspaceRoot is the `dir` argument to
// `anchor lsp [dir]`; open tracks live document overlays keyed by URI.
type Engine struct {
	workspaceRoot string
	open          map[string]string
}

// NewEngine returns a server rooted at workspaceRoot.
func NewEngine(workspaceRoot string) *Engine {
	return &Engine{workspaceRoot: workspaceRoot, open: make(map[string]string)}
}

// Initialize answers the client's initialize request: full-document
// sync, hover and definition declared as provided, and a server-info
// block naming the compiler.
func (e *Engine) Initialize(InitializeParams) InitializeResult {
	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:   TDSKFull,
			HoverProvider:      true,
			DefinitionProvider: true,
		},
		ServerInfo: ServerInfo{Name: ServerName},
	}
}

// DidOpen records the document's initial text and publishes its diagnostics.
func (e *Engine) DidOpen(p DidOpenTextDocumentParams) PublishDiagnosticsParams {
	e.open[p.TextDocument.URI] = p.TextDocument.Text
	return e.analyze(p.TextDocument.URI)
}

// DidChange replaces the document body with the last content-change
// entry in the batch (full-sync only) and re-publishes diagnostics. A
// batch with no entries leaves the document and its diagnostics
// unchanged.
func (e *Engine) DidChange(p DidChangeTextDocumentParams) PublishDiagnosticsParams {
	uri := p.TextDocument.URI
	if len(p.ContentChanges) == 0 {
		return e.analyze(uri)
	}
	e.open[uri] = p.ContentChanges[len(p.ContentChanges)-1].Text
	return e.analyze(uri)
}

// DidClose drops the overlay and publishes an empty diagnostics array to
// clear the client's markers.
func (e *Engine) DidClose(p DidCloseTextDocumentParams) PublishDiagnosticsParams {
	delete(e.open, p.TextDocument.URI)
	return PublishDiagnosticsParams{URI: p.TextDocument.URI, Diagnostics: []Diagnostic{}}
}

// analyze re-runs the full lex/parse/check pipeline over the document's
// current overlay text and converts the resulting sink into a publish
// notification. Each call gets its own short-lived arena, dropped whole
// when the analysis returns. The document is staged as a single-module
// package under a throwaway temp directory rather than written into the
// real workspace tree, so a document's cross-module imports within
// workspaceRoot are not resolved here. That keeps live-typing
// diagnostics self-contained; build and run always see the full package.
func (e *Engine) analyze(uri string) PublishDiagnosticsParams {
	text := e.open[uri]

	tmp, err := os.MkdirTemp("", "anchor-lsp-")
	if err != nil {
		return PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{{
			Severity: SeverityError,
			Source:   ServerName,
			Message:  err.Error(),
		}}}
	}
	defer os.RemoveAll(tmp)

	name := moduleName(uri)
	srcPath := filepath.Join(tmp, name+modgraph.SourceExt)
	if err := os.WriteFile(srcPath, []byte(text), 0o644); err != nil {
		return PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{{
			Severity: SeverityError,
			Source:   ServerName,
			Message:  err.Error(),
		}}}
	}

	sink := diagnostics.NewSink()
	a := arena.New(0)
	reg := types.NewRegistry(a)
	g := modgraph.New(tmp, a, sink)
	g.Load(name)
	sem.New(reg, sink, g).Analyze()

	return toPublish(uri, sink)
}

// moduleName derives a single-file package's module name from a document
// URI, mirroring internal/driver.Run's own entry-from-file-base-name rule
// for a bare file compiled without a manifest.
func moduleName(uri string) string {
	base := filepath.Base(uriToPath(uri))
	return strings.TrimSuffix(base, modgraph.SourceExt)
}

// uriToPath strips a file:// scheme if present; bare paths pass through
// unchanged so tests can exercise the engine without constructing URIs.
func uriToPath(uri string) string {
	const scheme = "file://"
	if strings.HasPrefix(uri, scheme) {
		return strings.TrimPrefix(uri, scheme)
	}
	return uri
}

// toPublish converts every diagnostic pushed during analysis into a
// publishDiagnostics notification, converting each 1-based source
// position to a 0-based point range.
func toPublish(uri string, sink *diagnostics.Sink) PublishDiagnosticsParams {
	entries := sink.Entries()
	out := make([]Diagnostic, 0, len(entries))
	for _, d := range entries {
		pos := Position{Line: d.Pos.Line - 1, Character: d.Pos.Column - 1}
		out = append(out, Diagnostic{
			Range:    Range{Start: pos, End: pos},
			Severity: toLSPSeverity(d.Severity),
			Source:   ServerName,
			Message:  d.Message,
		})
	}
	return PublishDiagnosticsParams{URI: uri, Diagnostics: out}
}

func toLSPSeverity(s diagnostics.Severity) DiagnosticSeverity {
	switch s {
	case diagnostics.SeverityError:
		return SeverityError
	case diagnostics.SeverityWarning:
		return SeverityWarning
	default:
		return SeverityHint
	}
}
