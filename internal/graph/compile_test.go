package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mark3labs/openspec-studio/internal/document"
)

func valueAt(t *testing.T, doc *document.Document, keys ...string) any {
	t.Helper()
	n := doc.Lookup(keys...)
	if n == nil {
		t.Fatalf("missing %v", keys)
	}
	v, err := document.New(n).Value()
	if err != nil {
		t.Fatalf("value %v: %v", keys, err)
	}
	return v
}

func usersGraph(t *testing.T) *Graph {
	t.Helper()
	g := New(seqIDs())
	if _, err := g.Add(&ServerProps{Description: "local"}, Position{}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(&SecurityProps{Name: "bearerAuth", Type: "http", Scheme: "bearer", BearerFormat: "JWT"}, Position{}); err != nil {
		t.Fatal(err)
	}
	path, err := g.Add(&PathProps{Path: "/users", Summary: "Users"}, Position{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Select(path.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(&MethodProps{Method: "post", Summary: "Create user"}, Position{}); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCompile_Skeleton(t *testing.T) {
	t.Parallel()
	doc, err := Compile(New().Nodes(), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, _ := doc.Value()
	want := map[string]any{
		"openapi":    "3.0.0",
		"info":       map[string]any{"title": "Generated API", "version": "1.0.0"},
		"paths":      map[string]any{},
		"components": map[string]any{"securitySchemes": map[string]any{}, "schemas": map[string]any{}},
		"servers":    []any{},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("skeleton mismatch (-want +got):\n%s", diff)
	}
	out, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wantJSON := `{
  "openapi": "3.0.0",
  "info": {
    "title": "Generated API",
    "version": "1.0.0"
  },
  "paths": {},
  "components": {
    "securitySchemes": {},
    "schemas": {}
  },
  "servers": []
}
`
	if string(out) != wantJSON {
		t.Fatalf("unexpected key order:\n%s", out)
	}
}

func TestCompile_MethodReplacesPathEntry(t *testing.T) {
	t.Parallel()
	doc, err := usersGraph(t).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := map[string]any{
		"post": map[string]any{
			"tags":       []any{},
			"summary":    "Create user",
			"parameters": []any{},
			"responses":  map[string]any{},
		},
	}
	if diff := cmp.Diff(want, valueAt(t, doc, "paths", "/users"), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("path entry mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_DefaultsAndOmittedStrings(t *testing.T) {
	t.Parallel()
	doc, err := usersGraph(t).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	servers := []any{map[string]any{"url": DefaultServerURL, "description": "local", "variables": map[string]any{}}}
	if diff := cmp.Diff(servers, valueAt(t, doc, "servers"), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("servers mismatch (-want +got):\n%s", diff)
	}
	schemes := map[string]any{"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT", "flows": map[string]any{}}}
	if diff := cmp.Diff(schemes, valueAt(t, doc, "components", "securitySchemes"), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("security mismatch (-want +got):\n%s", diff)
	}
	if doc.Lookup("tags") != nil {
		t.Fatalf("tags must not appear without Tag nodes")
	}
}

func TestCompile_RoundTripsThroughYAML(t *testing.T) {
	t.Parallel()
	doc, err := usersGraph(t).Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	text, err := doc.EncodeYAML()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := document.Parse(string(text), document.YAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, keys := range [][]string{{"servers"}, {"paths"}, {"components", "securitySchemes"}} {
		if diff := cmp.Diff(valueAt(t, doc, keys...), valueAt(t, snap.Document, keys...)); diff != "" {
			t.Errorf("%v changed after round trip (-want +got):\n%s", keys, diff)
		}
	}
	eps, ok := snap.Endpoints.Get("/users")
	if !ok || len(eps) != 1 || eps[0].Method != document.POST || eps[0].Summary != "Create user" {
		t.Fatalf("unexpected endpoints: %+v", eps)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	t.Parallel()
	g := usersGraph(t)
	a, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("compile is not deterministic")
	}
}

func TestCompile_MalformedJSONNamesNode(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	path, _ := g.Add(&PathProps{Path: "/x"}, Position{})
	_ = g.Select(path.ID)
	m, _ := g.Add(&MethodProps{Parameters: "[{"}, Position{})

	_, err := g.Compile()
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Code != PropertyDecodeError || ce.NodeID != m.ID || ce.Property != "parameters" {
		t.Fatalf("unexpected error: %+v", ce)
	}
}

func TestCompile_MalformedServerVariables(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	s, _ := g.Add(&ServerProps{Variables: "{nope}"}, Position{})
	_, err := g.Compile()
	var ce *CompileError
	if !errors.As(err, &ce) || ce.NodeID != s.ID || ce.Property != "variables" {
		t.Fatalf("expected variables decode error for %s, got %v", s.ID, err)
	}
}

func TestCompile_MethodOptions(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	path, _ := g.Add(&PathProps{Path: "/pets"}, Position{})
	_ = g.Select(path.ID)
	_, _ = g.Add(&MethodProps{
		Tags:        " pets , admin,,",
		Parameters:  `[{"name": "limit", "in": "query"}]`,
		RequestBody: `{"required": true}`,
		Responses:   `{"200": {"description": "ok"}}`,
	}, Position{})
	_, _ = g.Add(&MethodProps{Method: "DELETE"}, Position{})

	doc, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := map[string]any{
		"get": map[string]any{
			"tags":        []any{"pets", "admin"},
			"parameters":  []any{map[string]any{"name": "limit", "in": "query"}},
			"requestBody": map[string]any{"required": true},
			"responses":   map[string]any{"200": map[string]any{"description": "ok"}},
		},
		"delete": map[string]any{
			"tags":       []any{},
			"parameters": []any{},
			"responses":  map[string]any{},
		},
	}
	if diff := cmp.Diff(want, valueAt(t, doc, "paths", "/pets"), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_LaterPathNodeWins(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	first, _ := g.Add(&PathProps{Path: "/a"}, Position{})
	_ = g.Select(first.ID)
	_, _ = g.Add(&MethodProps{Method: "get"}, Position{})
	g.ClearSelection()
	_, _ = g.Add(&PathProps{Path: "/a", Summary: "again"}, Position{})

	doc, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"summary": "again"}, valueAt(t, doc, "paths", "/a")); diff != "" {
		t.Fatalf("last write should win (-want +got):\n%s", diff)
	}
}

func TestCompile_AmbiguousParent(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	a, _ := g.Add(&PathProps{Path: "/a"}, Position{})
	b, _ := g.Add(&PathProps{Path: "/b"}, Position{})
	_ = g.Select(a.ID)
	m, _ := g.Add(&MethodProps{}, Position{})
	if _, err := g.Connect(b.ID, m.ID); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err := g.Compile()
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Code != AmbiguousParentError || ce.NodeID != m.ID {
		t.Fatalf("expected AmbiguousParentError, got %v", err)
	}
}

func TestCompile_UndirectedEdgesAndUnknownNodes(t *testing.T) {
	t.Parallel()
	nodes := []Node{
		{ID: RootID},
		{ID: "m", Props: &MethodProps{Method: "put"}},
		{ID: "p", Props: &PathProps{Path: "/items"}},
		{ID: "orphan", Props: &MethodProps{}},
	}
	edges := []Edge{
		{ID: "e1", Source: "m", Target: "p"},
		{ID: "e2", Source: "ghost", Target: "orphan"},
	}
	doc, err := Compile(nodes, edges)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// The Path node comes after the Method node, so its write wins.
	if diff := cmp.Diff(map[string]any{}, valueAt(t, doc, "paths", "/items"), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected entry (-want +got):\n%s", diff)
	}

	nodes[1], nodes[2] = nodes[2], nodes[1]
	doc, err = Compile(nodes, edges)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if doc.Lookup("paths", "/items", "put") == nil {
		t.Fatalf("method reachable through a reversed edge should compile")
	}
}

func TestCompile_TagsAndSecurityWithoutName(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	_, _ = g.Add(&TagProps{}, Position{})
	_, _ = g.Add(&TagProps{Name: "users", Description: "User ops"}, Position{})
	_, _ = g.Add(&SecurityProps{Type: "http"}, Position{})
	doc, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []any{
		map[string]any{"name": DefaultTagName},
		map[string]any{"name": "users", "description": "User ops"},
	}
	if diff := cmp.Diff(want, valueAt(t, doc, "tags")); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if n := doc.Lookup("components", "securitySchemes"); len(n.Content) != 0 {
		t.Fatalf("unnamed security node must be skipped")
	}
}

func TestCompile_MethodPassesThrough(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	p, _ := g.Add(&PathProps{Path: "/a"}, Position{})
	_ = g.Select(p.ID)
	_, _ = g.Add(&MethodProps{Method: " TRACE "}, Position{})
	_, _ = g.Add(&MethodProps{Method: "Fetch"}, Position{})
	doc, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, m := range []string{"trace", "fetch"} {
		if doc.Lookup("paths", "/a", m) == nil {
			t.Fatalf("missing %s operation under /a", m)
		}
	}
}
