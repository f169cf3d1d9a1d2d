// Package graph is the visual editing model: typed nodes placed around one
// root node, joined by edges, and compiled into an OpenAPI document.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mark3labs/openspec-studio/internal/document"
)

// RootID identifies the implicit root node. It is always present and cannot
// be deleted or given properties.
const RootID = "central"

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a placed graph node. Props is nil only for the root.
type Node struct {
	ID       string
	Props    Properties
	Position Position
}

// Category returns the node's category.
func (n Node) Category() Category {
	if n.ID == RootID || n.Props == nil {
		return CategoryRoot
	}
	return n.Props.Category()
}

// Edge joins two nodes. It is stored directed (parent to child) but compile
// treats it as undirected.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph holds the nodes, edges and current selection. It is not safe for
// concurrent use.
type Graph struct {
	nodes    []Node
	edges    []Edge
	selected string
	newID    func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces the UUIDv7 generator, e.g. for deterministic tests.
func WithIDGenerator(f func() string) Option { return func(g *Graph) { g.newID = f } }

// New returns a graph holding only the root node.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes: []Node{{ID: RootID, Position: Position{X: 300, Y: 200}}},
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Nodes returns the nodes in insertion order, root first.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		n.Props = clone(n.Props)
		out[i] = n
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	i := g.index(id)
	if i < 0 {
		return Node{}, false
	}
	n := g.nodes[i]
	n.Props = clone(n.Props)
	return n, true
}

func (g *Graph) index(id string) int {
	for i, n := range g.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Add places a node with props at pos and attaches it with an edge from the
// selected node, or from the root when nothing is selected.
func (g *Graph) Add(props Properties, pos Position) (Node, error) {
	if props == nil {
		return Node{}, fmt.Errorf("%w: missing properties", ErrUnknownCategory)
	}
	n := Node{ID: g.newID(), Props: clone(props), Position: pos}
	parent := RootID
	if g.selected != "" && g.index(g.selected) >= 0 {
		parent = g.selected
	}
	g.nodes = append(g.nodes, n)
	g.edges = append(g.edges, Edge{ID: g.newID(), Source: parent, Target: n.ID})
	n.Props = clone(n.Props)
	return n, nil
}

// Select marks id as the attachment point for new nodes.
func (g *Graph) Select(id string) error {
	if g.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.selected = id
	return nil
}

func (g *Graph) ClearSelection() { g.selected = "" }

// Selected returns the selected node, if any.
func (g *Graph) Selected() (Node, bool) {
	if g.selected == "" {
		return Node{}, false
	}
	return g.Node(g.selected)
}

// SetProperties replaces the properties of id. The category cannot change.
func (g *Graph) SetProperties(id string, props Properties) error {
	i, err := g.editable(id)
	if err != nil {
		return err
	}
	if props == nil || props.Category() != g.nodes[i].Props.Category() {
		return fmt.Errorf("%w: node %s is a %s", ErrCategoryMismatch, id, g.nodes[i].Props.Category())
	}
	g.nodes[i].Props = clone(props)
	return nil
}

// SetPropertyValues updates the named fields of id, leaving the rest as they are.
func (g *Graph) SetPropertyValues(id string, values map[string]string) error {
	i, err := g.editable(id)
	if err != nil {
		return err
	}
	p := clone(g.nodes[i].Props)
	if err := assign(p, values); err != nil {
		return err
	}
	g.nodes[i].Props = p
	return nil
}

// Move sets the canvas position of id.
func (g *Graph) Move(id string, pos Position) error {
	i := g.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.nodes[i].Position = pos
	return nil
}

func (g *Graph) editable(id string) (int, error) {
	if id == RootID {
		return -1, ErrRootNode
	}
	i := g.index(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return i, nil
}

// Delete removes id and every edge touching it, clearing the selection if it
// pointed at id.
func (g *Graph) Delete(id string) error {
	i, err := g.editable(id)
	if err != nil {
		return err
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	if g.selected == id {
		g.selected = ""
	}
	return nil
}

// Connect adds an edge between two existing, distinct, not yet joined nodes.
func (g *Graph) Connect(source, target string) (Edge, error) {
	if g.index(source) < 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if g.index(target) < 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	if source == target {
		return Edge{}, fmt.Errorf("%w: self loop on %s", ErrInvalidEdge, source)
	}
	for _, e := range g.edges {
		if (e.Source == source && e.Target == target) || (e.Source == target && e.Target == source) {
			return Edge{}, fmt.Errorf("%w: %s and %s are already connected", ErrInvalidEdge, source, target)
		}
	}
	e := Edge{ID: g.newID(), Source: source, Target: target}
	g.edges = append(g.edges, e)
	return e, nil
}

// RemoveEdge deletes the edge with id.
func (g *Graph) RemoveEdge(id string) error {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// Compile folds the current graph into an OpenAPI document.
func (g *Graph) Compile() (*document.Document, error) {
	return Compile(g.nodes, g.edges)
}
