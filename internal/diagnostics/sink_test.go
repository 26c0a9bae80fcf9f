package diagnostics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkPushAppendsInOrder(t *testing.T) {
	s := NewSink()
	s.Error(CodeTypeMismatch, Position{Line: 1, Column: 2}, "bad type %s", "int")
	s.Warning(CodeSymShadowsLocal, Position{Line: 3, Column: 4}, "shadow")

	require.Len(t, s.Entries(), 2)
	assert.Equal(t, SeverityError, s.Entries()[0].Severity)
	assert.Equal(t, "bad type int", s.Entries()[0].Message)
	assert.Equal(t, SeverityWarning, s.Entries()[1].Severity)
}

func TestHasErrorsOnlyTrueForErrorSeverity(t *testing.T) {
	s := NewSink()
	assert.False(t, s.HasErrors())
	s.Hint(CodeSymUnknown, Position{}, "hint")
	s.Warning(CodeSymUnknown, Position{}, "warn")
	assert.False(t, s.HasErrors())
	s.Error(CodeSymUnknown, Position{}, "err")
	assert.True(t, s.HasErrors())
}

func TestPushTruncatesSilentlyOnOverflow(t *testing.T) {
	s := NewSink()
	huge := strings.Repeat("x", maxMessageLen*2)
	s.Error(CodeTypeMismatch, Position{}, "%s", huge)
	assert.Len(t, s.Entries()[0].Message, maxMessageLen)
}

func TestResetClearsEntries(t *testing.T) {
	s := NewSink()
	s.Error(CodeSymUnknown, Position{}, "x")
	s.Reset()
	assert.Empty(t, s.Entries())
}

func TestRenderText(t *testing.T) {
	s := NewSink()
	s.Error(CodeSymUnknown, Position{Line: 5, Column: 9}, "undefined symbol 'x'")
	got := s.Entries()[0].RenderText("main.anc")
	assert.Equal(t, "main.anc:5:9: error: undefined symbol 'x'", got)
}
