package diagnostics

import "fmt"

// Sink is the append-only diagnostic list. It is not safe for concurrent
// use; the compiler core is single-threaded and the LSP wrapper gives
// every analysis its own Sink.
type Sink struct {
	entries []Diagnostic
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Push formats msg with args (bounded, silently truncated on overflow) and
// appends a diagnostic at the given severity and position.
func (s *Sink) Push(severity Severity, code Code, pos Position, format string, args ...any) {
	s.entries = append(s.entries, Diagnostic{
		Severity: severity,
		Pos:      pos,
		Code:     code,
		Message:  formatBounded(format, args...),
	})
}

// Error records an error-severity diagnostic.
func (s *Sink) Error(code Code, pos Position, format string, args ...any) {
	s.Push(SeverityError, code, pos, format, args...)
}

// Warning records a warning-severity diagnostic.
func (s *Sink) Warning(code Code, pos Position, format string, args ...any) {
	s.Push(SeverityWarning, code, pos, format, args...)
}

// Hint records a hint-severity diagnostic (editor surface only).
func (s *Sink) Hint(code Code, pos Position, format string, args ...any) {
	s.Push(SeverityHint, code, pos, format, args...)
}

// Entries returns every diagnostic recorded so far, in push order.
func (s *Sink) Entries() []Diagnostic {
	return s.entries
}

// HasErrors reports whether any error-severity diagnostic was recorded.
// The backend must not run when this is true.
func (s *Sink) HasErrors() bool {
	for _, d := range s.entries {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Reset clears the sink for reuse (e.g. the LSP wrapper re-analyzing a
// document).
func (s *Sink) Reset() {
	s.entries = s.entries[:0]
}

// RenderText formats a diagnostic as "line:col: severity: message", the
// compact form the CLI prints to stderr.
func (d Diagnostic) RenderText(file string) string {
	if file != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", file, d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}
