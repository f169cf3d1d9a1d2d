package document

import (
	"errors"
	"time"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Diagnostic is one entry of the diagnostics log. Line is 1-based, 0 when absent.
type Diagnostic struct {
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	Line      int       `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxDiagnostics bounds the log length.
const MaxDiagnostics = 50

// DiagnosticLog keeps diagnostics newest first, dropping the oldest beyond
// MaxDiagnostics. The zero value is an empty log.
type DiagnosticLog struct {
	entries []Diagnostic
}

// Push prepends d.
func (l *DiagnosticLog) Push(d Diagnostic) {
	l.entries = append([]Diagnostic{d}, l.entries...)
	if len(l.entries) > MaxDiagnostics {
		l.entries = l.entries[:MaxDiagnostics]
	}
}

// Reset replaces the log with ds, in the given order.
func (l *DiagnosticLog) Reset(ds ...Diagnostic) {
	if len(ds) > MaxDiagnostics {
		ds = ds[:MaxDiagnostics]
	}
	l.entries = append([]Diagnostic(nil), ds...)
}

func (l *DiagnosticLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log, newest first.
func (l *DiagnosticLog) Entries() []Diagnostic {
	return append([]Diagnostic(nil), l.entries...)
}

// Grouped returns the log split by kind.
func (l *DiagnosticLog) Grouped() map[Kind][]Diagnostic {
	return GroupDiagnostics(l.entries)
}

// GroupDiagnostics splits ds by kind, keeping order within each group.
func GroupDiagnostics(ds []Diagnostic) map[Kind][]Diagnostic {
	out := map[Kind][]Diagnostic{}
	for _, d := range ds {
		out[d.Kind] = append(out[d.Kind], d)
	}
	return out
}

// DiagnosticFor turns a parse failure into an error diagnostic.
func DiagnosticFor(err error, at time.Time) Diagnostic {
	d := Diagnostic{Kind: KindError, Message: err.Error(), Timestamp: at}
	var de *Error
	if errors.As(err, &de) {
		d.Line = de.Line
	} else {
		d.Line = lineFromMessage(d.Message)
	}
	return d
}
