// Package workspace owns the editor buffer: it feeds every edit to the text
// document model, persists the buffer, and handles import, export and format
// toggling.
package workspace

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/openspec-studio/internal/document"
)

//go:embed default.yaml
var defaultTemplate string

// DefaultTemplate returns the document loaded for a new file.
func DefaultTemplate() string { return defaultTemplate }

// ExportBaseName is the file name used for exports, before the extension.
const ExportBaseName = "openapi"

// ExportFile is a downloadable copy of the buffer.
type ExportFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Content  string `json:"content"`
}

// State is a consistent view of a session.
type State struct {
	Text        string
	Format      document.Format
	Snapshot    document.Snapshot
	Diagnostics []document.Diagnostic
}

// Session serializes edits: each edit's parse, diagnostics and indexes are
// complete before the next one starts. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	text   string
	model  *document.Model
	store  Store
	logger *slog.Logger
	fetch  FetchSettings
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }
func WithFetchSettings(f FetchSettings) Option { return func(s *Session) { s.fetch = f } }

// WithModel replaces the text document model, e.g. to enable validation.
func WithModel(m *document.Model) Option { return func(s *Session) { s.model = m } }

// Open restores the buffer from store, falling back to the default template,
// and parses it. A parse failure is recorded as a diagnostic, not returned.
func Open(ctx context.Context, store Store, opts ...Option) (*Session, error) {
	s := &Session{
		store:  store,
		logger: slog.Default(),
		fetch:  DefaultFetchSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.model == nil {
		s.model = document.NewModel(document.WithLogger(s.logger))
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}

	text := defaultTemplate
	saved, err := s.store.Load(ctx, ContentKey)
	switch {
	case err == nil && len(saved) > 0:
		text = string(saved)
		if err := s.restoreFormat(ctx); err != nil {
			return nil, err
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("workspace: restore buffer: %w", err)
	}
	s.text = text
	_, _ = s.model.Parse(text)
	s.logger.Info("workspace opened", "format", s.model.Format().String(), "bytes", len(text), "restored", err == nil)
	return s, nil
}

func (s *Session) restoreFormat(ctx context.Context) error {
	saved, err := s.store.Load(ctx, FormatKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("workspace: restore format: %w", err)
	}
	f, err := document.ParseFormat(string(saved))
	if err != nil {
		s.logger.Warn("ignoring stored format", "value", string(saved), "error", err)
		return nil
	}
	s.model.SetFormat(f)
	return nil
}

// Edit replaces the buffer and parses it. The buffer is persisted when the
// parse succeeds. A parse failure is returned as a *document.Error and also
// recorded in the diagnostics.
func (s *Session) Edit(ctx context.Context, text string) (document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit(ctx, text)
}

func (s *Session) edit(ctx context.Context, text string) (document.Snapshot, error) {
	s.text = text
	snap, err := s.model.Parse(text)
	if err != nil {
		return snap, err
	}
	if err := s.store.Save(ctx, ContentKey, []byte(text)); err != nil {
		return snap, fmt.Errorf("workspace: persist buffer: %w", err)
	}
	format := strings.ToLower(s.model.Format().String())
	if err := s.store.Save(ctx, FormatKey, []byte(format)); err != nil {
		return snap, fmt.Errorf("workspace: persist format: %w", err)
	}
	return snap, nil
}

// ToggleFormat converts the buffer to the other format through a full
// round-trip and re-parses it. On conversion failure nothing changes.
func (s *Session) ToggleFormat(ctx context.Context) (document.Format, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.model.Format()
	out, err := document.Convert(s.text, from == document.YAML)
	if err != nil {
		return from, fmt.Errorf("workspace: switch to %s: %w", from.Other(), err)
	}
	s.model.SetFormat(from.Other())
	if _, err := s.edit(ctx, out); err != nil {
		return s.model.Format(), err
	}
	s.logger.Debug("format toggled", "from", from.String(), "to", from.Other().String())
	return s.model.Format(), nil
}

// Import replaces the buffer with the verbatim content of a local file or an
// http/https URL. The format is not changed.
func (s *Session) Import(ctx context.Context, source string) (document.Snapshot, error) {
	s.mu.Lock()
	settings := s.fetch
	s.mu.Unlock()
	raw, err := ReadSource(ctx, source, settings)
	if err != nil {
		return document.Snapshot{}, err
	}
	s.logger.Info("importing document", "source", source, "bytes", len(raw))
	return s.Edit(ctx, string(raw))
}

// New loads the default template in YAML format.
func (s *Session) New(ctx context.Context) (document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetFormat(document.YAML)
	return s.edit(ctx, defaultTemplate)
}

// ApplyDocument replaces the buffer with doc serialized in the current format.
// It reports false and leaves the buffer alone when doc matches the current
// document.
func (s *Session) ApplyDocument(ctx context.Context, doc *document.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.model.Snapshot().Document; cur != nil && cur.Equal(doc) {
		return false, nil
	}
	out, err := doc.Encode(s.model.Format())
	if err != nil {
		return false, err
	}
	if _, err := s.edit(ctx, string(out)); err != nil {
		return true, err
	}
	return true, nil
}

// Export returns the buffer verbatim, named after the current format.
func (s *Session) Export() ExportFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.model.Format()
	return ExportFile{Name: ExportBaseName + f.Extension(), MIMEType: f.MIMEType(), Content: s.text}
}

// WriteExport writes the export into dir atomically and returns its path.
func (s *Session) WriteExport(dir string) (string, error) {
	exp := s.Export()
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("export: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}
	p := filepath.Join(abs, exp.Name)
	if err := WriteFileAtomic(p, []byte(exp.Content)); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return p, nil
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) Format() document.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Format()
}

func (s *Session) Snapshot() document.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot()
}

// State returns the buffer, format, snapshot and diagnostics taken together.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Text:        s.text,
		Format:      s.model.Format(),
		Snapshot:    s.model.Snapshot(),
		Diagnostics: s.model.Diagnostics(),
	}
}
