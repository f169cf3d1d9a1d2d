package document

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Method is an upper-case HTTP method recognized as an operation key.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	PATCH   Method = "PATCH"
	OPTIONS Method = "OPTIONS"
	HEAD    Method = "HEAD"
)

// Methods lists the recognized methods in display order.
var Methods = []Method{GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD}

// ParseMethod matches s case-insensitively against Methods.
func ParseMethod(s string) (Method, bool) {
	u := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range Methods {
		if m == u {
			return m, true
		}
	}
	return "", false
}

// NoSummary is reported for operations without a summary.
const NoSummary = "No summary"

// Endpoint is one operation under a path.
type Endpoint struct {
	Method      Method `json:"method"`
	Summary     string `json:"summary"`
	OperationID string `json:"operationId,omitempty"`
}

// PathEndpoints groups the operations of one path in source order.
type PathEndpoints struct {
	Path      string     `json:"path"`
	Endpoints []Endpoint `json:"endpoints"`
}

// EndpointIndex is an ordered mapping from path to its operations.
type EndpointIndex struct {
	entries []PathEndpoints
}

func (ix EndpointIndex) Len() int { return len(ix.entries) }

// Entries returns the paths in source order.
func (ix EndpointIndex) Entries() []PathEndpoints {
	out := make([]PathEndpoints, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Get returns the operations recorded for path.
func (ix EndpointIndex) Get(path string) ([]Endpoint, bool) {
	for _, e := range ix.entries {
		if e.Path == path {
			return e.Endpoints, true
		}
	}
	return nil, false
}

// Filter keeps the paths containing query, ignoring case. An empty query keeps all.
func (ix EndpointIndex) Filter(query string) EndpointIndex {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ix
	}
	var out EndpointIndex
	for _, e := range ix.entries {
		if strings.Contains(strings.ToLower(e.Path), q) {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// SchemaEntry is one named definition under components.schemas.
type SchemaEntry struct {
	Name       string
	Definition *yaml.Node
}

// Value decodes the definition into plain Go values.
func (e SchemaEntry) Value() (any, error) {
	return New(e.Definition).Value()
}

// SchemaIndex is an ordered mapping from schema name to its raw definition.
type SchemaIndex struct {
	entries []SchemaEntry
}

func (ix SchemaIndex) Len() int { return len(ix.entries) }

// Entries returns the schemas in source order.
func (ix SchemaIndex) Entries() []SchemaEntry {
	out := make([]SchemaEntry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Names returns the schema names in source order.
func (ix SchemaIndex) Names() []string {
	names := make([]string, len(ix.entries))
	for i, e := range ix.entries {
		names[i] = e.Name
	}
	return names
}

// Get returns the definition stored under name.
func (ix SchemaIndex) Get(name string) (*yaml.Node, bool) {
	for _, e := range ix.entries {
		if e.Name == name {
			return e.Definition, true
		}
	}
	return nil, false
}

// Filter keeps the schemas whose name contains query, ignoring case.
func (ix SchemaIndex) Filter(query string) SchemaIndex {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ix
	}
	var out SchemaIndex
	for _, e := range ix.entries {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// ExtractEndpoints lists the operations under doc's top-level "paths". A
// missing or non-mapping "paths" yields an empty index.
func ExtractEndpoints(doc *Document) EndpointIndex {
	var ix EndpointIndex
	paths := doc.Lookup("paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return ix
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		entry := PathEndpoints{Path: paths.Content[i].Value, Endpoints: []Endpoint{}}
		item := deref(paths.Content[i+1])
		if item != nil && item.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(item.Content); j += 2 {
				m, ok := ParseMethod(item.Content[j].Value)
				if !ok {
					continue
				}
				op := deref(item.Content[j+1])
				ep := Endpoint{Method: m, Summary: NoSummary}
				if s := scalar(op, "summary"); s != "" {
					ep.Summary = s
				}
				ep.OperationID = scalar(op, "operationId")
				entry.Endpoints = append(entry.Endpoints, ep)
			}
		}
		ix.entries = append(ix.entries, entry)
	}
	return ix
}

// ExtractSchemas lists components.schemas verbatim. Missing levels yield an
// empty index.
func ExtractSchemas(doc *Document) SchemaIndex {
	var ix SchemaIndex
	schemas := doc.Lookup("components", "schemas")
	if schemas == nil || schemas.Kind != yaml.MappingNode {
		return ix
	}
	for i := 0; i+1 < len(schemas.Content); i += 2 {
		ix.entries = append(ix.entries, SchemaEntry{
			Name:       schemas.Content[i].Value,
			Definition: schemas.Content[i+1],
		})
	}
	return ix
}

func scalar(m *yaml.Node, key string) string {
	v := deref(Get(m, key))
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return ""
	}
	return v.Value
}
