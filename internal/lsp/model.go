// Package lsp implements the editor-protocol server that wraps the
// compiler core to serve diagnostics over a length-prefixed JSON-RPC
// transport. Supported methods are initialize/initialized/shutdown/exit
// and the three textDocument/did* notifications, with publishDiagnostics
// as the only thing the server ever pushes back.
package lsp

// Position is 0-based line/character, per the LSP convention, converted
// from the compiler's 1-based source positions.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a point range when Start == End, which is all this server
// ever produces.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// DiagnosticSeverity carries the LSP numeric severities: 1=error,
// 2=warning, 4=hint. There is no severity 3 (LSP's "information")
// because internal/diagnostics.Severity only has three variants.
type DiagnosticSeverity int

const (
	SeverityError   DiagnosticSeverity = 1
	SeverityWarning DiagnosticSeverity = 2
	SeverityHint    DiagnosticSeverity = 4
)

// Diagnostic is one entry of a publishDiagnostics notification.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// PublishDiagnosticsParams is the payload of textDocument/publishDiagnostics.
type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// TextDocumentItem is a full document as sent with didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// VersionedTextDocumentIdentifier names a document by URI plus version, as
// sent with didChange.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// TextDocumentContentChangeEvent is one entry of didChange's
// contentChanges array. Only full-document sync is supported, so
// Range/RangeLength are accepted but ignored.
type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength int    `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// InitializeParams is the client's initialize request payload. It is
// decoded but not read: Engine.Initialize ignores it, and the workspace
// root comes from Serve's workspaceRoot argument instead.
type InitializeParams struct {
	ProcessID int    `json:"processId,omitempty"`
	RootPath  string `json:"rootPath,omitempty"`
	RootURI   string `json:"rootUri,omitempty"`
}

// TextDocumentSyncKind mirrors the LSP enum; only full sync is offered.
type TextDocumentSyncKind int

const (
	TDSKNone TextDocumentSyncKind = 0
	TDSKFull TextDocumentSyncKind = 1
)

// ServerCapabilities advertises full-document sync plus hover and
// definition providers. Hover and definition are declared but not wired
// to a handler; textDocument/hover and textDocument/definition requests
// fall through Serve's default arm.
type ServerCapabilities struct {
	TextDocumentSync   TextDocumentSyncKind `json:"textDocumentSync,omitempty"`
	HoverProvider      bool                 `json:"hoverProvider,omitempty"`
	DefinitionProvider bool                 `json:"definitionProvider,omitempty"`
}

// ServerInfo names the server for the client's own display purposes.
type ServerInfo struct {
	Name string `json:"name"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}
