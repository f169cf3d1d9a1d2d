package document

import "gopkg.in/yaml.v3"

// Helpers for building document trees programmatically.

// NewMapping returns an empty mapping node.
func NewMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// NewSequence returns an empty sequence node.
func NewSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// String returns a string scalar. The explicit tag keeps values such as "123"
// or "true" quoted when emitted.
func String(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Get returns the value stored under key in mapping m, or nil.
func Get(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Set stores v under key in mapping m, replacing an existing value in place so
// the key keeps its position.
func Set(m *yaml.Node, key string, v *yaml.Node) {
	setKey(m, String(key), v)
}

// SetString stores a string scalar under key, skipping empty values.
func SetString(m *yaml.Node, key, value string) {
	if value == "" {
		return
	}
	Set(m, key, String(value))
}

// Append adds v to sequence s.
func Append(s, v *yaml.Node) {
	s.Content = append(s.Content, v)
}

func setKey(m, key, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key.Value {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, key, v)
}
