package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Category names a node kind on the canvas.
type Category string

const (
	CategoryRoot     Category = "root"
	CategoryTag      Category = "tag"
	CategoryPath     Category = "path"
	CategoryServer   Category = "server"
	CategoryMethod   Category = "method"
	CategorySecurity Category = "security"
)

// Categories lists the placeable categories in palette order.
var Categories = []Category{CategoryTag, CategoryPath, CategoryServer, CategoryMethod, CategorySecurity}

// ParseCategory matches s case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryRoot {
		return c, nil
	}
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// DisplayName is the capitalized category name shown on node labels.
func (c Category) DisplayName() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Properties is the closed set of per-category property records. Every field
// is free text; JSON-valued fields hold JSON source text.
type Properties interface {
	Category() Category
	bindings() []binding
}

type binding struct {
	key   string
	value *string
}

type TagProps struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (*TagProps) Category() Category { return CategoryTag }
func (p *TagProps) bindings() []binding {
	return []binding{{"name", &p.Name}, {"description", &p.Description}}
}

type PathProps struct {
	Path        string `json:"path,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	OperationID string `json:"operationId,omitempty"`
}

func (*PathProps) Category() Category { return CategoryPath }
func (p *PathProps) bindings() []binding {
	return []binding{{"path", &p.Path}, {"summary", &p.Summary}, {"description", &p.Description}, {"operationId", &p.OperationID}}
}

type ServerProps struct {
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Variables   string `json:"variables,omitempty"` // JSON object
}

func (*ServerProps) Category() Category { return CategoryServer }
func (p *ServerProps) bindings() []binding {
	return []binding{{"url", &p.URL}, {"description", &p.Description}, {"variables", &p.Variables}}
}

type MethodProps struct {
	Method      string `json:"method,omitempty"`
	Tags        string `json:"tags,omitempty"` // comma separated
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  string `json:"parameters,omitempty"`  // JSON array
	RequestBody string `json:"requestBody,omitempty"` // JSON object
	Responses   string `json:"responses,omitempty"`   // JSON object
}

func (*MethodProps) Category() Category { return CategoryMethod }
func (p *MethodProps) bindings() []binding {
	return []binding{
		{"method", &p.Method}, {"tags", &p.Tags}, {"summary", &p.Summary}, {"description", &p.Description},
		{"parameters", &p.Parameters}, {"requestBody", &p.RequestBody}, {"responses", &p.Responses},
	}
}

type SecurityProps struct {
	Type         string `json:"type,omitempty"`
	Name         string `json:"name,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
	Flows        string `json:"flows,omitempty"` // JSON object
}

func (*SecurityProps) Category() Category { return CategorySecurity }
func (p *SecurityProps) bindings() []binding {
	return []binding{{"type", &p.Type}, {"name", &p.Name}, {"scheme", &p.Scheme}, {"bearerFormat", &p.BearerFormat}, {"flows", &p.Flows}}
}

// NewProperties returns an empty record for c.
func NewProperties(c Category) (Properties, error) {
	switch c {
	case CategoryTag:
		return &TagProps{}, nil
	case CategoryPath:
		return &PathProps{}, nil
	case CategoryServer:
		return &ServerProps{}, nil
	case CategoryMethod:
		return &MethodProps{}, nil
	case CategorySecurity:
		return &SecurityProps{}, nil
	case CategoryRoot:
		return nil, ErrRootNode
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
}

// DecodeProperties builds a record for c from a string-keyed bag. Keys that
// the category does not define are rejected.
func DecodeProperties(c Category, values map[string]string) (Properties, error) {
	p, err := NewProperties(c)
	if err != nil {
		return nil, err
	}
	if err := assign(p, values); err != nil {
		return nil, err
	}
	return p, nil
}

// Values flattens p into a string-keyed bag holding every defined key.
func Values(p Properties) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string)
	for _, b := range p.bindings() {
		out[b.key] = *b.value
	}
	return out
}

// Keys returns the property keys of p in panel order.
func Keys(p Properties) []string {
	bs := p.bindings()
	keys := make([]string, len(bs))
	for i, b := range bs {
		keys[i] = b.key
	}
	return keys
}

func assign(p Properties, values map[string]string) error {
	bs := p.bindings()
	var unknown []string
	for k, v := range values {
		found := false
		for _, b := range bs {
			if b.key == k {
				*b.value = v
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w for %s: %s", ErrUnknownProperty, p.Category(), strings.Join(unknown, ", "))
	}
	return nil
}

// clone returns a deep copy of p.
func clone(p Properties) Properties {
	if p == nil {
		return nil
	}
	c, _ := NewProperties(p.Category())
	_ = assign(c, Values(p))
	return c
}
