// Package mcptools exposes the document and graph operations as MCP tools.
// Every tool is stateless: inputs carry the full document or graph snapshot.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/graph"
	"github.com/mark3labs/openspec-studio/internal/metrics"
)

// DocumentInput carries a buffer and its format.
type DocumentInput struct {
	Text   string `json:"text" jsonschema:"the OpenAPI document text"`
	Format string `json:"format,omitempty" jsonschema:"yaml (default) or json"`
}

// QueryInput filters an index by a case-insensitive substring.
type QueryInput struct {
	Text   string `json:"text" jsonschema:"the OpenAPI document text"`
	Format string `json:"format,omitempty" jsonschema:"yaml (default) or json"`
	Query  string `json:"query,omitempty" jsonschema:"case-insensitive filter"`
}

func (q QueryInput) document() DocumentInput { return DocumentInput{Text: q.Text, Format: q.Format} }

type ConvertInput struct {
	Text string `json:"text" jsonschema:"the document to convert"`
	From string `json:"from,omitempty" jsonschema:"format of text: yaml (default) or json"`
}

type CompileInput struct {
	Graph  string `json:"graph" jsonschema:"graph snapshot as JSON or YAML"`
	Format string `json:"format,omitempty" jsonschema:"output format: yaml (default) or json"`
}

type UpgradeInput struct {
	Text   string `json:"text" jsonschema:"a Swagger 2.0 or OpenAPI 3 document"`
	Format string `json:"format,omitempty" jsonschema:"output format: yaml (default) or json"`
}

type parseOutput struct {
	Empty       bool                     `json:"empty"`
	Endpoints   []document.PathEndpoints `json:"endpoints"`
	Schemas     []string                 `json:"schemas"`
	Diagnostics []document.Diagnostic    `json:"diagnostics"`
}

type schemaOutput struct {
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
}

// Tools holds the handlers' dependencies.
type Tools struct {
	logger   *slog.Logger
	metrics  *metrics.Recorder
	validate bool
}

type Option func(*Tools)

func WithLogger(l *slog.Logger) Option { return func(t *Tools) { t.logger = l } }
func WithMetrics(r *metrics.Recorder) Option { return func(t *Tools) { t.metrics = r } }

// WithValidation adds OpenAPI validation warnings to parse diagnostics.
func WithValidation(enabled bool) Option { return func(t *Tools) { t.validate = enabled } }

func newTools(opts ...Option) *Tools {
	t := &Tools{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewServer creates an MCP server with every tool registered.
func NewServer(name, version string, opts ...Option) *mcp.Server {
	t := newTools(opts...)
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_document",
		Description: "Parse an OpenAPI document and report its endpoints, schema names and diagnostics",
	}, t.handleParse)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "List the endpoints of an OpenAPI document grouped by path, optionally filtered by path",
	}, t.handleListEndpoints)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_schemas",
		Description: "List the component schemas of an OpenAPI document with their definitions",
	}, t.handleListSchemas)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_document",
		Description: "Convert an OpenAPI document between YAML and JSON",
	}, t.handleConvert)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "compile_graph",
		Description: "Compile a visual-editor graph snapshot into an OpenAPI document",
	}, t.handleCompile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upgrade_document",
		Description: "Upgrade a Swagger 2.0 document to OpenAPI 3",
	}, t.handleUpgrade)
	return server
}

// Run serves the tools over stdio until ctx is done. Logs must go to stderr.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil, nil
}

func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
}

func (t *Tools) parse(in DocumentInput) (*document.Model, document.Snapshot, error) {
	f, err := document.ParseFormat(in.Format)
	if err != nil {
		return nil, document.Snapshot{}, err
	}
	m := document.NewModel(
		document.WithFormat(f),
		document.WithLogger(t.logger),
		document.WithObserver(t.metrics),
		document.WithValidation(t.validate),
	)
	snap, err := m.Parse(in.Text)
	return m, snap, err
}

func (t *Tools) handleParse(_ context.Context, _ *mcp.CallToolRequest, in DocumentInput) (*mcp.CallToolResult, any, error) {
	m, snap, err := t.parse(in)
	if m == nil {
		return errorResult(err.Error()), nil, nil
	}
	out := parseOutput{
		Empty:       snap.Empty(),
		Endpoints:   snap.Endpoints.Entries(),
		Schemas:     snap.Schemas.Names(),
		Diagnostics: m.Diagnostics(),
	}
	res, _, encErr := jsonResult(out)
	if res != nil && err != nil {
		res.IsError = true
	}
	return res, nil, encErr
}

func (t *Tools) handleListEndpoints(_ context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	_, snap, err := t.parse(in.document())
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	entries := snap.Endpoints.Filter(in.Query).Entries()
	if entries == nil {
		entries = []document.PathEndpoints{}
	}
	return jsonResult(entries)
}

func (t *Tools) handleListSchemas(_ context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	_, snap, err := t.parse(in.document())
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	out := []schemaOutput{}
	for _, e := range snap.Schemas.Filter(in.Query).Entries() {
		def, err := document.New(e.Definition).EncodeJSON()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		out = append(out, schemaOutput{Name: e.Name, Definition: def})
	}
	return jsonResult(out)
}

func (t *Tools) handleConvert(_ context.Context, _ *mcp.CallToolRequest, in ConvertInput) (*mcp.CallToolResult, any, error) {
	from, err := document.ParseFormat(in.From)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	out, err := document.Convert(in.Text, from == document.YAML)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(out)
}

func (t *Tools) handleCompile(_ context.Context, _ *mcp.CallToolRequest, in CompileInput) (*mcp.CallToolResult, any, error) {
	f, err := document.ParseFormat(in.Format)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	g, err := graph.LoadSnapshot([]byte(in.Graph))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	start := time.Now()
	doc, err := g.Compile()
	t.metrics.ObserveCompile(err, time.Since(start))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	out, err := doc.Encode(f)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(string(out))
}

func (t *Tools) handleUpgrade(ctx context.Context, _ *mcp.CallToolRequest, in UpgradeInput) (*mcp.CallToolResult, any, error) {
	f, err := document.ParseFormat(in.Format)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	doc, err := document.Upgrade(ctx, []byte(in.Text))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	out, err := doc.Encode(f)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	t.logger.Debug("document upgraded", "bytes", len(out))
	return textResult(string(out))
}
