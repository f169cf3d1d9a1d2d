package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seqIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func TestNew_HasRootOnly(t *testing.T) {
	t.Parallel()
	g := New()
	nodes := g.Nodes()
	if len(nodes) != 1 || nodes[0].ID != RootID || nodes[0].Category() != CategoryRoot {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
	if len(g.Edges()) != 0 {
		t.Fatalf("expected no edges")
	}
}

func TestAdd_AttachesToSelectionOrRoot(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	path, err := g.Add(&PathProps{Path: "/users"}, Position{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Select(path.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	method, err := g.Add(&MethodProps{Method: "post"}, Position{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	g.ClearSelection()
	tag, _ := g.Add(&TagProps{}, Position{})

	want := []Edge{
		{ID: "id2", Source: RootID, Target: path.ID},
		{ID: "id4", Source: path.ID, Target: method.ID},
		{ID: "id6", Source: RootID, Target: tag.ID},
	}
	if diff := cmp.Diff(want, g.Edges()); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
	if _, ok := g.Selected(); ok {
		t.Fatalf("selection should be cleared")
	}
}

func TestAdd_DefaultIDsAreUnique(t *testing.T) {
	t.Parallel()
	g := New()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n, err := g.Add(&TagProps{}, Position{})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if seen[n.ID] {
			t.Fatalf("duplicate id %s", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestSetProperties(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	n, _ := g.Add(&ServerProps{}, Position{})
	if err := g.SetProperties(n.ID, &ServerProps{URL: "https://api"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := g.SetProperties(n.ID, &TagProps{}); !errors.Is(err, ErrCategoryMismatch) {
		t.Fatalf("expected ErrCategoryMismatch, got %v", err)
	}
	if err := g.SetProperties(RootID, &TagProps{}); !errors.Is(err, ErrRootNode) {
		t.Fatalf("expected ErrRootNode, got %v", err)
	}
	if err := g.SetPropertyValues(n.ID, map[string]string{"description": "prod"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	got, _ := g.Node(n.ID)
	if diff := cmp.Diff(&ServerProps{URL: "https://api", Description: "prod"}, got.Props); diff != "" {
		t.Fatalf("props mismatch (-want +got):\n%s", diff)
	}
	if err := g.SetPropertyValues(n.ID, map[string]string{"bogus": "x"}); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestNodesAreCopies(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	n, _ := g.Add(&TagProps{Name: "a"}, Position{})
	n.Props.(*TagProps).Name = "mutated"
	got, _ := g.Node(n.ID)
	if got.Props.(*TagProps).Name != "a" {
		t.Fatalf("graph state leaked through returned node")
	}
}

func TestDelete_CascadesEdges(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	path, _ := g.Add(&PathProps{Path: "/users"}, Position{})
	_ = g.Select(path.ID)
	method, _ := g.Add(&MethodProps{Method: "get"}, Position{})
	server, _ := g.Add(&ServerProps{}, Position{})

	if err := g.Delete(path.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, e := range g.Edges() {
		if e.Source == path.ID || e.Target == path.ID {
			t.Fatalf("edge %s still references deleted node", e.ID)
		}
	}
	if _, ok := g.Selected(); ok {
		t.Fatalf("deleting the selected node should clear the selection")
	}
	if _, ok := g.Node(method.ID); !ok {
		t.Fatalf("children are not deleted")
	}
	if _, ok := g.Node(server.ID); !ok {
		t.Fatalf("unrelated node removed")
	}
	doc, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if paths := doc.Lookup("paths"); len(paths.Content) != 0 {
		t.Fatalf("compiled document still references the deleted path")
	}
	if err := g.Delete(RootID); !errors.Is(err, ErrRootNode) {
		t.Fatalf("expected ErrRootNode, got %v", err)
	}
	if err := g.Delete("missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestConnectAndRemoveEdge(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	a, _ := g.Add(&PathProps{Path: "/a"}, Position{})
	b, _ := g.Add(&MethodProps{}, Position{})
	e, err := g.Connect(a.ID, b.ID)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := g.Connect(b.ID, a.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("expected duplicate edge rejection, got %v", err)
	}
	if _, err := g.Connect(a.ID, a.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("expected self loop rejection, got %v", err)
	}
	if _, err := g.Connect(a.ID, "nope"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if err := g.RemoveEdge(e.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := g.RemoveEdge(e.ID); !errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("expected ErrEdgeNotFound, got %v", err)
	}
}

func TestDecodeProperties_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	p, err := DecodeProperties(CategoryMethod, map[string]string{"method": "post", "summary": "s"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(&MethodProps{Method: "post", Summary: "s"}, p); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := DecodeProperties(CategoryTag, map[string]string{"path": "/x"}); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if _, err := DecodeProperties("widget", nil); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestFieldsFor(t *testing.T) {
	t.Parallel()
	fields := FieldsFor(CategoryMethod)
	var keys []string
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	if diff := cmp.Diff([]string{"method", "tags", "summary", "description", "parameters", "requestBody", "responses"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if fields[0].Kind != FieldSelect || len(fields[0].Options) != 7 {
		t.Fatalf("method should be a 7-way select: %+v", fields[0])
	}
	if fields[4].Kind != FieldMultiline {
		t.Fatalf("parameters should be multiline")
	}
	sec := FieldsFor(CategorySecurity)
	if diff := cmp.Diff([]string{"apiKey", "http", "oauth2", "openIdConnect"}, sec[0].Options); diff != "" {
		t.Fatalf("security type options (-want +got):\n%s", diff)
	}
	if FieldsFor(CategoryRoot) != nil {
		t.Fatalf("root has no fields")
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		node Node
		want string
	}{
		{Node{ID: RootID}, "Main API"},
		{Node{ID: "a", Props: &TagProps{}}, "Tag"},
		{Node{ID: "a", Props: &TagProps{Description: "d"}}, "Tag\nUnnamed"},
		{Node{ID: "a", Props: &PathProps{Path: "/users"}}, "Path\n/users"},
		{Node{ID: "a", Props: &ServerProps{Description: "x"}}, "Server\nhttp://"},
		{Node{ID: "a", Props: &MethodProps{Method: "post", Summary: "Create"}}, "POST\nCreate"},
		{Node{ID: "a", Props: &SecurityProps{Name: "key"}}, "Security\napiKey: key"},
	}
	for _, c := range cases {
		if got := Label(c.node); got != c.want {
			t.Errorf("Label(%+v) = %q, want %q", c.node.Props, got, c.want)
		}
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	g := New(seqIDs())
	p, _ := g.Add(&PathProps{Path: "/users", Summary: "Users"}, Position{X: 1, Y: 2})
	_ = g.Select(p.ID)
	_, _ = g.Add(&MethodProps{Method: "post", Summary: "Create user"}, Position{X: 3, Y: 4})

	data, err := EncodeSnapshot(g.Snapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	loaded, err := LoadSnapshot(data, seqIDs())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(g.Snapshot(), loaded.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSnapshot_JSONAndErrors(t *testing.T) {
	t.Parallel()
	g, err := LoadSnapshot([]byte(`{"nodes":[{"id":"s","category":"Server","position":{"x":0,"y":0},"properties":{"url":"https://x"}}],"edges":[{"id":"e","source":"central","target":"s"}]}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(g.Nodes()) != 2 {
		t.Fatalf("expected root plus one node")
	}
	bad := []string{
		`{"nodes":[{"id":"s","category":"server","properties":{"path":"/x"}}]}`,
		`{"nodes":[{"id":"s","category":"widget"}]}`,
		`{"nodes":[],"edges":[{"id":"e","source":"central","target":"ghost"}]}`,
		`{"nodes":[{"id":"a","category":"tag"},{"id":"a","category":"tag"}]}`,
		`{"nodes":[],"extra":true}`,
	}
	for _, in := range bad {
		if _, err := LoadSnapshot([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}
