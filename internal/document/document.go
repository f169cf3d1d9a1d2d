package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iancoleman/orderedmap"
	"gopkg.in/yaml.v3"
)

// Format is the surface syntax of a text buffer.
type Format int

const (
	YAML Format = iota
	JSON
)

func (f Format) String() string {
	if f == JSON {
		return "JSON"
	}
	return "YAML"
}

// Other returns the format a toggle switches to.
func (f Format) Other() Format {
	if f == JSON {
		return YAML
	}
	return JSON
}

// Extension returns the file extension used when exporting a buffer in f.
func (f Format) Extension() string {
	if f == JSON {
		return ".json"
	}
	return ".yaml"
}

// MIMEType returns the media type of a buffer in f.
func (f Format) MIMEType() string {
	if f == JSON {
		return "application/json"
	}
	return "text/yaml"
}

// ParseFormat accepts "yaml", "yml" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml", "":
		return YAML, nil
	case "json":
		return JSON, nil
	default:
		return YAML, fmt.Errorf("unknown format %q (allowed: yaml, json)", s)
	}
}

// FormatForPath guesses the format of a file from its extension. Anything that
// is not .json is treated as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Document is a parsed API description: an untyped, order-preserving tree of
// mappings, sequences and scalars. A nil or zero Document is empty.
type Document struct {
	root *yaml.Node
}

// New wraps a node tree. Document nodes are unwrapped to their content.
func New(root *yaml.Node) *Document {
	if root != nil && root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			root = nil
		} else {
			root = root.Content[0]
		}
	}
	if root != nil && root.Kind == 0 {
		root = nil
	}
	return &Document{root: root}
}

// Root returns the top-level node, or nil for an empty document.
func (d *Document) Root() *yaml.Node {
	if d == nil {
		return nil
	}
	return d.root
}

// IsEmpty reports whether the document holds no content.
func (d *Document) IsEmpty() bool { return d.Root() == nil }

// Lookup walks nested mapping keys from the root and returns the value node,
// or nil when any level is absent or not a mapping.
func (d *Document) Lookup(keys ...string) *yaml.Node {
	n := deref(d.Root())
	for _, k := range keys {
		n = deref(Get(n, k))
		if n == nil {
			return nil
		}
	}
	return n
}

// Value decodes the document into plain Go values (map[string]any, []any and
// scalars), the shape handed to a documentation renderer.
func (d *Document) Value() (any, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	var v any
	if err := d.root.Decode(&v); err != nil {
		return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("decode document: %v", err), Cause: err}
	}
	return v, nil
}

// EncodeYAML serializes the document in block style with two-space indentation.
func (d *Document) EncodeYAML() ([]byte, error) {
	if d.IsEmpty() {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(blockStyle(d.root)); err != nil {
		return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("encode yaml: %v", err), Cause: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("encode yaml: %v", err), Cause: err}
	}
	return buf.Bytes(), nil
}

// EncodeJSON serializes the document as indented JSON, keeping mapping key order.
func (d *Document) EncodeJSON() ([]byte, error) {
	var v any
	if !d.IsEmpty() {
		var err error
		if v, err = jsonValue(d.root); err != nil {
			return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("encode json: %v", err), Cause: err}
		}
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("encode json: %v", err), Cause: err}
	}
	return append(out, '\n'), nil
}

// Encode serializes the document in the given format.
func (d *Document) Encode(f Format) ([]byte, error) {
	if f == JSON {
		return d.EncodeJSON()
	}
	return d.EncodeYAML()
}

// Equal reports whether two documents have the same structure and key order.
func (d *Document) Equal(other *Document) bool {
	a, err := d.EncodeJSON()
	if err != nil {
		return false
	}
	b, err := other.EncodeJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// OperationLine returns the 1-based source line of the method key under path,
// falling back to the line of the path key. It returns 0 when the path is absent.
func (d *Document) OperationLine(path, method string) int {
	paths := d.Lookup("paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return 0
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		if paths.Content[i].Value != path {
			continue
		}
		item := deref(paths.Content[i+1])
		if item != nil && item.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(item.Content); j += 2 {
				if strings.EqualFold(item.Content[j].Value, method) {
					return item.Content[j].Line
				}
			}
		}
		return paths.Content[i].Line
	}
	return 0
}

// PointerLine resolves a JSON pointer ("#/paths/~1pets/get") against the tree
// and returns the line of the deepest node found, or 0.
func (d *Document) PointerLine(pointer string) int {
	pointer = strings.TrimPrefix(strings.TrimPrefix(pointer, "#"), "/")
	n := deref(d.Root())
	if n == nil {
		return 0
	}
	line := n.Line
	if pointer == "" {
		return line
	}
	unescape := strings.NewReplacer("~1", "/", "~0", "~")
	for _, part := range strings.Split(pointer, "/") {
		part = unescape.Replace(part)
		switch n.Kind {
		case yaml.MappingNode:
			found := false
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == part {
					line = n.Content[i].Line
					n = deref(n.Content[i+1])
					found = true
					break
				}
			}
			if !found {
				return line
			}
		case yaml.SequenceNode:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(n.Content) {
				return line
			}
			n = deref(n.Content[idx])
			line = n.Line
		default:
			return line
		}
	}
	return line
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// blockStyle returns a copy of n with flow and quoting styles cleared so that
// documents read from JSON are emitted as idiomatic block YAML.
func blockStyle(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	switch c.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		c.Style &^= yaml.FlowStyle
	case yaml.ScalarNode:
		c.Style &^= yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = blockStyle(child)
		}
	}
	return &c
}

func jsonValue(n *yaml.Node) (any, error) {
	n = deref(n)
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return jsonValue(n.Content[0])
	case yaml.MappingNode:
		m := orderedmap.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := deref(n.Content[i])
			if key == nil || key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key is not a scalar", n.Content[i].Line)
			}
			v, err := jsonValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key.Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := jsonValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}
