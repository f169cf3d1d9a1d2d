package graph

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/openspec-studio/internal/document"
)

// Default values used when a node leaves a field empty.
const (
	DefaultServerURL    = "http://example.com"
	DefaultTagName      = "Unnamed Tag"
	DefaultMethod       = "get"
	DefaultSecurityType = "apiKey"
)

// Compile folds nodes and edges into an OpenAPI document. It is pure: the
// same input always yields a structurally equal document.
//
// Nodes are applied in order and later writes to the same key win. A Method
// node lands under the path of the one Path node it touches; the first Method
// for a path replaces that path's entry, later ones add to it. Edges whose
// endpoints are unknown are ignored.
func Compile(nodes []Node, edges []Edge) (*document.Document, error) {
	c := newCompiler(nodes, edges)
	for _, n := range nodes {
		if err := c.apply(n); err != nil {
			return nil, err
		}
	}
	return document.New(c.root), nil
}

type compiler struct {
	byID      map[string]Node
	neighbors map[string][]string

	root, paths, schemes, servers, tags *yaml.Node
	// paths whose entry is owned by an operation
	owned map[string]bool
}

func newCompiler(nodes []Node, edges []Edge) *compiler {
	c := &compiler{
		byID:      make(map[string]Node, len(nodes)),
		neighbors: make(map[string][]string),
		owned:     make(map[string]bool),
	}
	for _, n := range nodes {
		c.byID[n.ID] = n
	}
	for _, e := range edges {
		_, okS := c.byID[e.Source]
		_, okT := c.byID[e.Target]
		if !okS || !okT || e.Source == e.Target {
			continue
		}
		c.neighbors[e.Source] = append(c.neighbors[e.Source], e.Target)
		c.neighbors[e.Target] = append(c.neighbors[e.Target], e.Source)
	}

	c.root = document.NewMapping()
	document.Set(c.root, "openapi", document.String("3.0.0"))
	info := document.NewMapping()
	document.Set(info, "title", document.String("Generated API"))
	document.Set(info, "version", document.String("1.0.0"))
	document.Set(c.root, "info", info)
	c.paths = document.NewMapping()
	document.Set(c.root, "paths", c.paths)
	components := document.NewMapping()
	c.schemes = document.NewMapping()
	document.Set(components, "securitySchemes", c.schemes)
	document.Set(components, "schemas", document.NewMapping())
	document.Set(c.root, "components", components)
	c.servers = document.NewSequence()
	document.Set(c.root, "servers", c.servers)
	return c
}

func (c *compiler) apply(n Node) error {
	switch p := n.Props.(type) {
	case *ServerProps:
		s := document.NewMapping()
		document.Set(s, "url", document.String(orDefault(p.URL, DefaultServerURL)))
		document.SetString(s, "description", p.Description)
		vars, err := jsonProperty(n.ID, "variables", p.Variables, document.NewMapping)
		if err != nil {
			return err
		}
		document.Set(s, "variables", vars)
		document.Append(c.servers, s)

	case *TagProps:
		if c.tags == nil {
			c.tags = document.NewSequence()
			document.Set(c.root, "tags", c.tags)
		}
		t := document.NewMapping()
		document.Set(t, "name", document.String(orDefault(p.Name, DefaultTagName)))
		document.SetString(t, "description", p.Description)
		document.Append(c.tags, t)

	case *PathProps:
		if p.Path == "" {
			return nil
		}
		entry := document.NewMapping()
		document.SetString(entry, "summary", p.Summary)
		document.SetString(entry, "description", p.Description)
		document.Set(c.paths, p.Path, entry)
		delete(c.owned, p.Path)

	case *MethodProps:
		path, err := c.parentPath(n)
		if err != nil || path == "" {
			return err
		}
		method := strings.ToLower(orDefault(strings.TrimSpace(p.Method), DefaultMethod))
		op, err := operation(n.ID, p)
		if err != nil {
			return err
		}
		if !c.owned[path] {
			document.Set(c.paths, path, document.NewMapping())
			c.owned[path] = true
		}
		document.Set(document.Get(c.paths, path), method, op)

	case *SecurityProps:
		if p.Name == "" {
			return nil
		}
		s := document.NewMapping()
		document.Set(s, "type", document.String(orDefault(p.Type, DefaultSecurityType)))
		document.SetString(s, "scheme", p.Scheme)
		document.SetString(s, "bearerFormat", p.BearerFormat)
		flows, err := jsonProperty(n.ID, "flows", p.Flows, document.NewMapping)
		if err != nil {
			return err
		}
		document.Set(s, "flows", flows)
		document.Set(c.schemes, p.Name, s)
	}
	return nil
}

// parentPath returns the path named by the Path nodes adjacent to a Method
// node, or "" when there is none.
func (c *compiler) parentPath(n Node) (string, error) {
	seen := map[string]bool{}
	var found []string
	for _, id := range c.neighbors[n.ID] {
		pp, ok := c.byID[id].Props.(*PathProps)
		if !ok || pp.Path == "" || seen[pp.Path] {
			continue
		}
		seen[pp.Path] = true
		found = append(found, pp.Path)
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	default:
		sort.Strings(found)
		return "", &CompileError{
			Code:    AmbiguousParentError,
			NodeID:  n.ID,
			Message: fmt.Sprintf("node %s: method is connected to several paths: %s", n.ID, strings.Join(found, ", ")),
		}
	}
}

func operation(id string, p *MethodProps) (*yaml.Node, error) {
	op := document.NewMapping()
	tags := document.NewSequence()
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			document.Append(tags, document.String(t))
		}
	}
	document.Set(op, "tags", tags)
	document.SetString(op, "summary", p.Summary)
	document.SetString(op, "description", p.Description)
	params, err := jsonProperty(id, "parameters", p.Parameters, document.NewSequence)
	if err != nil {
		return nil, err
	}
	document.Set(op, "parameters", params)
	if strings.TrimSpace(p.RequestBody) != "" {
		body, err := jsonProperty(id, "requestBody", p.RequestBody, document.NewMapping)
		if err != nil {
			return nil, err
		}
		document.Set(op, "requestBody", body)
	}
	responses, err := jsonProperty(id, "responses", p.Responses, document.NewMapping)
	if err != nil {
		return nil, err
	}
	document.Set(op, "responses", responses)
	return op, nil
}

// jsonProperty decodes a JSON-valued property, using empty() when it is blank.
func jsonProperty(id, key, text string, empty func() *yaml.Node) (*yaml.Node, error) {
	if strings.TrimSpace(text) == "" {
		return empty(), nil
	}
	doc, err := document.Decode([]byte(text), document.JSON)
	if err != nil {
		return nil, &CompileError{
			Code:     PropertyDecodeError,
			NodeID:   id,
			Property: key,
			Message:  fmt.Sprintf("node %s: property %s: %v", id, key, err),
			Cause:    err,
		}
	}
	return doc.Root(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
