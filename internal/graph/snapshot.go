package graph

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Snapshot is the serializable form of a graph, as exchanged with a canvas.
type Snapshot struct {
	Nodes    []NodeSnapshot `json:"nodes"`
	Edges    []Edge         `json:"edges"`
	Selected string         `json:"selected,omitempty"`
}

type NodeSnapshot struct {
	ID         string            `json:"id"`
	Category   Category          `json:"category"`
	Position   Position          `json:"position"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Snapshot captures the graph.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:    make([]NodeSnapshot, 0, len(g.nodes)),
		Edges:    g.Edges(),
		Selected: g.selected,
	}
	for _, n := range g.nodes {
		s.Nodes = append(s.Nodes, NodeSnapshot{
			ID:         n.ID,
			Category:   n.Category(),
			Position:   n.Position,
			Properties: Values(n.Props),
		})
	}
	return s
}

// FromSnapshot rebuilds a graph. The root is added when missing; node ids must
// be unique and edges must join known nodes.
func FromSnapshot(s Snapshot, opts ...Option) (*Graph, error) {
	g := New(opts...)
	seen := map[string]bool{RootID: true}
	for _, ns := range s.Nodes {
		if ns.ID == RootID {
			if ns.Category != "" && ns.Category != CategoryRoot {
				return nil, fmt.Errorf("%w: %s must be the root", ErrCategoryMismatch, RootID)
			}
			g.nodes[0].Position = ns.Position
			continue
		}
		if ns.ID == "" || seen[ns.ID] {
			return nil, fmt.Errorf("graph snapshot: missing or duplicate node id %q", ns.ID)
		}
		seen[ns.ID] = true
		c, err := ParseCategory(string(ns.Category))
		if err != nil {
			return nil, fmt.Errorf("graph snapshot: node %s: %w", ns.ID, err)
		}
		p, err := DecodeProperties(c, ns.Properties)
		if err != nil {
			return nil, fmt.Errorf("graph snapshot: node %s: %w", ns.ID, err)
		}
		g.nodes = append(g.nodes, Node{ID: ns.ID, Props: p, Position: ns.Position})
	}
	for _, e := range s.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return nil, fmt.Errorf("graph snapshot: edge %s: %w", e.ID, ErrNodeNotFound)
		}
		if e.ID == "" {
			e.ID = g.newID()
		}
		g.edges = append(g.edges, e)
	}
	if s.Selected != "" && seen[s.Selected] {
		g.selected = s.Selected
	}
	return g, nil
}

// LoadSnapshot decodes a YAML or JSON graph snapshot.
func LoadSnapshot(data []byte, opts ...Option) (*Graph, error) {
	var s Snapshot
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("graph snapshot: %w", err)
	}
	return FromSnapshot(s, opts...)
}

// EncodeSnapshot renders s as YAML.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return yaml.Marshal(s)
}
