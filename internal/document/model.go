package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Observer receives the outcome of every Model.Parse.
type Observer interface {
	ObserveParse(f Format, err error, elapsed time.Duration)
}

// Model is the text-document model: the current format, the last snapshot and
// the diagnostics log. It is not safe for concurrent use; callers serialize
// edits.
type Model struct {
	format      Format
	snapshot    Snapshot
	diagnostics DiagnosticLog

	now      func() time.Time
	logger   *slog.Logger
	validate bool
	observer Observer
}

// Option configures a Model.
type Option func(*Model)

func WithFormat(f Format) Option { return func(m *Model) { m.format = f } }
func WithClock(now func() time.Time) Option { return func(m *Model) { m.now = now } }
func WithLogger(l *slog.Logger) Option { return func(m *Model) { m.logger = l } }
func WithObserver(o Observer) Option { return func(m *Model) { m.observer = o } }

// WithValidation appends OpenAPI validation warnings after each successful parse.
func WithValidation(enabled bool) Option { return func(m *Model) { m.validate = enabled } }

// NewModel returns a YAML model with an empty snapshot and log.
func NewModel(opts ...Option) *Model {
	m := &Model{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Format() Format { return m.format }

// SetFormat changes the format used by the next Parse.
func (m *Model) SetFormat(f Format) { m.format = f }

// Snapshot returns the result of the last parse; empty after a failure.
func (m *Model) Snapshot() Snapshot { return m.snapshot }

// Diagnostics returns the log, newest first.
func (m *Model) Diagnostics() []Diagnostic { return m.diagnostics.Entries() }

// Grouped returns the log split by kind.
func (m *Model) Grouped() map[Kind][]Diagnostic { return m.diagnostics.Grouped() }

// Parse parses text in the current format and replaces the snapshot.
//
// On success the log is cleared and holds one info entry, followed by
// validation warnings when enabled. On failure the snapshot becomes empty and
// an error entry is prepended to the log; the parse error is returned.
func (m *Model) Parse(text string) (Snapshot, error) {
	start := time.Now()
	snap, err := Parse(text, m.format)
	if m.observer != nil {
		m.observer.ObserveParse(m.format, err, time.Since(start))
	}
	if err != nil {
		m.snapshot = Snapshot{}
		d := DiagnosticFor(err, m.now())
		m.diagnostics.Push(d)
		m.logger.Debug("parse failed", "format", m.format.String(), "line", d.Line, "error", d.Message)
		return Snapshot{}, err
	}

	m.snapshot = snap
	now := m.now()
	entries := []Diagnostic{{
		Kind:      KindInfo,
		Message:   fmt.Sprintf("%s parsed successfully", m.format),
		Timestamp: now,
	}}
	if m.validate {
		for _, f := range Validate(context.Background(), snap.Document) {
			entries = append(entries, Diagnostic{Kind: KindWarning, Message: f.Message, Line: f.Line, Timestamp: now})
		}
	}
	m.diagnostics.Reset(entries...)
	m.logger.Debug("parsed document",
		"format", m.format.String(),
		"paths", snap.Endpoints.Len(),
		"schemas", snap.Schemas.Len(),
		"warnings", len(entries)-1)
	return snap, nil
}
