package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineInitializeAdvertisesCapabilities(t *testing.T) {
	e := NewEngine(t.TempDir())
	result := e.Initialize(InitializeParams{})

	assert.Equal(t, TDSKFull, result.Capabilities.TextDocumentSync)
	assert.True(t, result.Capabilities.HoverProvider)
	assert.True(t, result.Capabilities.DefinitionProvider)
	assert.Equal(t, ServerName, result.ServerInfo.Name)
}

func TestEngineDidOpenCleanSourcePublishesNoDiagnostics(t *testing.T) {
	e := NewEngine(t.TempDir())
	pub := e.DidOpen(DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI:  "file:///main.anc",
		Text: "func main(): int\nreturn 0\nend\n",
	}})

	assert.Equal(t, "file:///main.anc", pub.URI)
	assert.Empty(t, pub.Diagnostics)
}

func TestEngineDidOpenTypeErrorPublishesPointRangeDiagnostic(t *testing.T) {
	e := NewEngine(t.TempDir())
	pub := e.DidOpen(DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI:  "file:///main.anc",
		Text: "func main(): int\nreturn \"nope\"\nend\n",
	}})

	require.NotEmpty(t, pub.Diagnostics)
	d := pub.Diagnostics[0]
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, ServerName, d.Source)
	assert.Equal(t, d.Range.Start, d.Range.End, "diagnostics are point ranges")
	assert.NotEmpty(t, d.Message)
}

func TestEngineDidChangeReanalyzesLastContentChange(t *testing.T) {
	e := NewEngine(t.TempDir())
	uri := "file:///main.anc"
	e.DidOpen(DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI: uri, Text: "func main(): int\nreturn 0\nend\n",
	}})

	pub := e.DidChange(DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{URI: uri},
		ContentChanges: []TextDocumentContentChangeEvent{
			{Text: "func main(): int\nreturn \"nope\"\nend\n"},
		},
	})
	assert.NotEmpty(t, pub.Diagnostics)
}

func TestEngineDidCloseClearsDiagnostics(t *testing.T) {
	e := NewEngine(t.TempDir())
	uri := "file:///main.anc"
	e.DidOpen(DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI: uri, Text: "func main(): int\nreturn \"nope\"\nend\n",
	}})

	pub := e.DidClose(DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: uri}})
	assert.Equal(t, uri, pub.URI)
	assert.Empty(t, pub.Diagnostics)
}

func TestModuleNameStripsSchemeAndExtension(t *testing.T) {
	assert.Equal(t, "main", moduleName("file:///home/dev/pkg/main.anc"))
	assert.Equal(t, "main", moduleName("/home/dev/pkg/main.anc"))
}

// frame encodes v with the Content-Length header the server expects.
func frame(t *testing.T, v any) string {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestServeRespondsToInitializeAndExitsAfterShutdown(t *testing.T) {
	var in bytes.Buffer
	in.WriteString(frame(t, map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{},
	}))
	in.WriteString(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "initialized",
	}))
	in.WriteString(frame(t, map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "shutdown",
	}))
	in.WriteString(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "exit",
	}))

	var out bytes.Buffer
	err := Serve(&in, &out, t.TempDir(), false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"capabilities"`)
	assert.Contains(t, out.String(), ServerName)
}

func TestServePublishesDiagnosticsOnDidOpen(t *testing.T) {
	var in bytes.Buffer
	in.WriteString(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "textDocument/didOpen", "params": DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{URI: "file:///main.anc", Text: "func main(): int\nreturn \"nope\"\nend\n"},
		},
	}))

	var out bytes.Buffer
	err := Serve(&in, &out, t.TempDir(), false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "textDocument/publishDiagnostics")
}
