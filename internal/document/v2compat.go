package document

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// fixV2Operations rewrites non-compliant Swagger v2 operations in place so
// kin-openapi can convert them to v3:
//   - several body parameters are merged into one body parameter whose schema
//     is an object with a property per original parameter;
//   - body parameters mixed with formData become formData parameters and the
//     operation consumes multipart/form-data.
//
// It reports whether anything changed.
func fixV2Operations(root *yaml.Node) bool {
	paths := deref(Get(root, "paths"))
	if paths == nil || paths.Kind != yaml.MappingNode {
		return false
	}
	modified := false
	for i := 0; i+1 < len(paths.Content); i += 2 {
		item := deref(paths.Content[i+1])
		if item == nil || item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			if _, ok := ParseMethod(item.Content[j].Value); !ok {
				continue
			}
			op := deref(item.Content[j+1])
			if op == nil || op.Kind != yaml.MappingNode {
				continue
			}
			if fixV2Operation(op) {
				modified = true
			}
		}
	}
	return modified
}

func fixV2Operation(op *yaml.Node) bool {
	params := deref(Get(op, "parameters"))
	if params == nil || params.Kind != yaml.SequenceNode || len(params.Content) == 0 {
		return false
	}
	bodyCount := 0
	hasFormData := false
	for _, p := range params.Content {
		switch strings.ToLower(scalar(deref(p), "in")) {
		case "body":
			bodyCount++
		case "formdata":
			hasFormData = true
		}
	}
	if bodyCount == 0 {
		return false
	}

	if hasFormData {
		fixed := NewSequence()
		for _, p := range params.Content {
			if strings.EqualFold(scalar(deref(p), "in"), "body") {
				Append(fixed, formDataFromBody(deref(p)))
				continue
			}
			Append(fixed, p)
		}
		Set(op, "parameters", fixed)
		consumes := deref(Get(op, "consumes"))
		if consumes == nil || consumes.Kind != yaml.SequenceNode {
			consumes = NewSequence()
		}
		if !containsScalar(consumes, "multipart/form-data") {
			Append(consumes, String("multipart/form-data"))
		}
		Set(op, "consumes", consumes)
		return true
	}

	if bodyCount == 1 {
		return false
	}
	props := NewMapping()
	required := NewSequence()
	rest := NewSequence()
	for _, p := range params.Content {
		pm := deref(p)
		if !strings.EqualFold(scalar(pm, "in"), "body") {
			Append(rest, p)
			continue
		}
		name := scalar(pm, "name")
		if name == "" {
			name = "field"
		}
		schema := schemaOfParam(pm)
		if schema == nil {
			schema = NewMapping()
			Set(schema, "type", String("string"))
		}
		Set(props, name, schema)
		if scalar(pm, "required") == "true" {
			Append(required, String(name))
		}
	}
	bodySchema := NewMapping()
	Set(bodySchema, "type", String("object"))
	Set(bodySchema, "properties", props)
	if len(required.Content) > 0 {
		Set(bodySchema, "required", required)
	}
	merged := NewMapping()
	Set(merged, "in", String("body"))
	Set(merged, "name", String("body"))
	Set(merged, "schema", bodySchema)
	rest.Content = append([]*yaml.Node{merged}, rest.Content...)
	Set(op, "parameters", rest)
	return true
}

func containsScalar(seq *yaml.Node, want string) bool {
	for _, v := range seq.Content {
		if v.Kind == yaml.ScalarNode && v.Value == want {
			return true
		}
	}
	return false
}

// schemaOfParam returns the parameter's schema, or one synthesized from its
// type, items and format.
func schemaOfParam(p *yaml.Node) *yaml.Node {
	if s := deref(Get(p, "schema")); s != nil && s.Kind == yaml.MappingNode {
		return s
	}
	t := scalar(p, "type")
	if t == "" {
		return nil
	}
	m := NewMapping()
	Set(m, "type", String(t))
	if it := deref(Get(p, "items")); it != nil && it.Kind == yaml.MappingNode {
		Set(m, "items", it)
	}
	SetString(m, "format", scalar(p, "format"))
	return m
}

func formDataFromBody(p *yaml.Node) *yaml.Node {
	name := scalar(p, "name")
	if name == "" {
		name = "field"
	}
	out := NewMapping()
	Set(out, "in", String("formData"))
	Set(out, "name", String(name))
	SetString(out, "description", scalar(p, "description"))
	if req := deref(Get(p, "required")); req != nil && req.Kind == yaml.ScalarNode {
		Set(out, "required", req)
	}

	var typ, format string
	var items *yaml.Node
	if s := deref(Get(p, "schema")); s != nil && s.Kind == yaml.MappingNode {
		typ = scalar(s, "type")
		format = scalar(s, "format")
		if it := deref(Get(s, "items")); it != nil && it.Kind == yaml.MappingNode {
			items = it
		}
		// A referenced object cannot be a form field.
		if typ == "" && Get(s, "$ref") != nil {
			typ = "string"
		}
	}
	if typ == "" {
		typ = scalar(p, "type")
		format = scalar(p, "format")
		if it := deref(Get(p, "items")); it != nil && it.Kind == yaml.MappingNode {
			items = it
		}
	}
	if typ == "" {
		typ = "string"
	}
	Set(out, "type", String(typ))
	if items != nil {
		Set(out, "items", items)
	}
	SetString(out, "format", format)
	return out
}
