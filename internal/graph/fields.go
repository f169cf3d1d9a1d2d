package graph

import (
	"fmt"
	"strings"
)

// FieldKind tells a property panel which input to render.
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldMultiline FieldKind = "multiline"
	FieldSelect    FieldKind = "select"
)

// Field describes one editable property.
type Field struct {
	Key     string    `json:"key"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Default string    `json:"default,omitempty"`
}

var (
	methodOptions   = []string{"get", "post", "put", "delete", "patch", "options", "head"}
	securityOptions = []string{"apiKey", "http", "oauth2", "openIdConnect"}
)

// FieldsFor lists the panel fields of c in display order. The root has none.
func FieldsFor(c Category) []Field {
	p, err := NewProperties(c)
	if err != nil {
		return nil
	}
	keys := Keys(p)
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		f := Field{Key: k, Kind: FieldText}
		switch {
		case c == CategoryMethod && k == "method":
			f.Kind, f.Options, f.Default = FieldSelect, methodOptions, DefaultMethod
		case c == CategorySecurity && k == "type":
			f.Kind, f.Options, f.Default = FieldSelect, securityOptions, DefaultSecurityType
		case k == "parameters", k == "variables", k == "flows", k == "responses", k == "requestBody":
			f.Kind = FieldMultiline
		}
		fields = append(fields, f)
	}
	return fields
}

// Label renders the two-line caption shown on a node.
func Label(n Node) string {
	if n.Category() == CategoryRoot {
		return "Main API"
	}
	if isBlank(n.Props) {
		return n.Category().DisplayName()
	}
	name := n.Category().DisplayName()
	switch p := n.Props.(type) {
	case *TagProps:
		return name + "\n" + orDefault(p.Name, "Unnamed")
	case *PathProps:
		return name + "\n" + orDefault(p.Path, "/")
	case *ServerProps:
		return name + "\n" + orDefault(p.URL, "http://")
	case *MethodProps:
		return strings.ToUpper(orDefault(p.Method, DefaultMethod)) + "\n" + p.Summary
	case *SecurityProps:
		return fmt.Sprintf("%s\n%s: %s", name, orDefault(p.Type, DefaultSecurityType), p.Name)
	}
	return name
}

func isBlank(p Properties) bool {
	for _, b := range p.bindings() {
		if *b.value != "" {
			return false
		}
	}
	return true
}
