package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/graph"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

type schemaView struct {
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
}

// stateView is the JSON form of a session state.
type stateView struct {
	Text        string                   `json:"text"`
	Format      string                   `json:"format"`
	Empty       bool                     `json:"empty"`
	Endpoints   []document.PathEndpoints `json:"endpoints"`
	Schemas     []schemaView             `json:"schemas"`
	Diagnostics []document.Diagnostic    `json:"diagnostics"`
}

type errorView struct {
	Error    string     `json:"error"`
	Code     string     `json:"code,omitempty"`
	Line     int        `json:"line,omitempty"`
	NodeID   string     `json:"nodeId,omitempty"`
	Property string     `json:"property,omitempty"`
	State    *stateView `json:"state,omitempty"`
}

func formatName(f document.Format) string { return strings.ToLower(f.String()) }

func schemaViews(ix document.SchemaIndex) []schemaView {
	out := make([]schemaView, 0, ix.Len())
	for _, e := range ix.Entries() {
		def, err := document.New(e.Definition).EncodeJSON()
		if err != nil {
			def = []byte("null")
		}
		out = append(out, schemaView{Name: e.Name, Definition: def})
	}
	return out
}

func newStateView(st workspace.State) *stateView {
	return &stateView{
		Text:        st.Text,
		Format:      formatName(st.Format),
		Empty:       st.Snapshot.Empty(),
		Endpoints:   st.Snapshot.Endpoints.Entries(),
		Schemas:     schemaViews(st.Snapshot.Schemas),
		Diagnostics: st.Diagnostics,
	}
}

func (s *Server) state() *stateView { return newStateView(s.session.State()) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a JSON body. The session state is
// attached for failures that still changed it.
func (s *Server) writeError(w http.ResponseWriter, err error, withState bool) {
	status := http.StatusInternalServerError
	body := errorView{Error: err.Error()}

	var de *document.Error
	var ce *graph.CompileError
	switch {
	case errors.As(err, &de):
		body.Code, body.Line = string(de.Code), de.Line
		switch de.Code {
		case document.InputError:
			status = http.StatusBadRequest
		case document.NetworkError:
			status = http.StatusBadGateway
		default:
			status = http.StatusUnprocessableEntity
		}
	case errors.As(err, &ce):
		status = http.StatusUnprocessableEntity
		body.Code, body.NodeID, body.Property = string(ce.Code), ce.NodeID, ce.Property
	}
	if withState {
		body.State = s.state()
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, body)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, &document.Error{Code: document.InputError, Message: fmt.Sprintf("read request body: %v", err), Cause: err}
	}
	return data, nil
}

func (s *Server) handleGetDocument(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// handlePutDocument replaces the buffer with the raw request body. A parse
// failure still replaces the buffer; the response is 422 with the new state.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, err, false)
		return
	}
	_, err = s.session.Edit(r.Context(), string(data))
	s.publish()
	if err != nil {
		s.writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	_, err := s.session.New(r.Context())
	s.publish()
	if err != nil {
		s.writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

type importRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, err, false)
		return
	}
	var req importRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Source) == "" {
		s.writeError(w, &document.Error{Code: document.InputError, Message: `import: body must be {"source": "<path or url>"}`}, false)
		return
	}
	_, err = s.session.Import(r.Context(), req.Source)
	var de *document.Error
	if errors.As(err, &de) && (de.Code == document.InputError || de.Code == document.NetworkError) {
		s.writeError(w, err, false)
		return
	}
	s.publish()
	if err != nil {
		s.writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.ToggleFormat(r.Context()); err != nil {
		s.writeError(w, err, true)
		return
	}
	s.publish()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	ix := s.session.Snapshot().Endpoints.Filter(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, ix.Entries())
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	ix := s.session.Snapshot().Schemas.Filter(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, schemaViews(ix))
}

type diagnosticsView struct {
	Diagnostics []document.Diagnostic `json:"diagnostics"`
	Counts      map[document.Kind]int `json:"counts"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	ds := s.session.State().Diagnostics
	counts := map[document.Kind]int{}
	for kind, group := range document.GroupDiagnostics(ds) {
		counts[kind] = len(group)
	}
	writeJSON(w, http.StatusOK, diagnosticsView{Diagnostics: ds, Counts: counts})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	line := s.session.Snapshot().Document.OperationLine(q.Get("path"), q.Get("method"))
	if line == 0 {
		writeJSON(w, http.StatusNotFound, errorView{Error: "path not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"line": line})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	c, err := graph.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorView{Error: err.Error()})
		return
	}
	fields := graph.FieldsFor(c)
	if fields == nil {
		fields = []graph.Field{}
	}
	writeJSON(w, http.StatusOK, fields)
}

type compileView struct {
	Changed bool       `json:"changed"`
	State   *stateView `json:"state"`
}

// handleCompile compiles a graph snapshot (JSON or YAML) and applies the
// result to the buffer.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, err, false)
		return
	}
	g, err := graph.LoadSnapshot(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: err.Error()})
		return
	}

	start := time.Now()
	doc, err := g.Compile()
	s.metrics.ObserveCompile(err, time.Since(start))
	if err != nil {
		s.writeError(w, err, false)
		return
	}

	changed, err := s.session.ApplyDocument(r.Context(), doc)
	if changed {
		s.publish()
	}
	if err != nil {
		s.writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, compileView{Changed: changed, State: s.state()})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	exp := s.session.Export()
	w.Header().Set("Content-Type", exp.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Content)))
	_, _ = io.WriteString(w, exp.Content)
}
