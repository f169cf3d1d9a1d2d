package document

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Validate checks an "openapi: 3.x" document with kin-openapi and returns one
// ValidationError per finding. Other documents, including Swagger 2.0 and
// documents without a version, are not checked. External refs are never
// followed.
func Validate(ctx context.Context, doc *Document) []*Error {
	if !isOpenAPI3(doc) {
		return nil
	}
	data, err := doc.EncodeJSON()
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			return []*Error{de}
		}
		return []*Error{{Code: SerializeError, Message: err.Error(), Cause: err}}
	}
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	t, err := loader.LoadFromData(data)
	if err != nil {
		return []*Error{validationFinding(doc, err)}
	}
	if err := t.Validate(ctx); err != nil {
		var me openapi3.MultiError
		if errors.As(err, &me) {
			out := make([]*Error, 0, len(me))
			for _, e := range me {
				out = append(out, validationFinding(doc, e))
			}
			return out
		}
		return []*Error{validationFinding(doc, err)}
	}
	return nil
}

func isOpenAPI3(doc *Document) bool {
	v := doc.Lookup("openapi")
	return v != nil && v.Kind == yaml.ScalarNode && strings.HasPrefix(strings.TrimSpace(v.Value), "3.")
}

func validationFinding(doc *Document, err error) *Error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Some loader errors are really parse errors.
	if msg := strings.ToLower(err.Error()); strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		code = ParseError
	}
	f := &Error{Code: code, Message: fmt.Sprintf("openapi: %v", err), JSONPointer: pointer, Cause: err}
	if strings.HasPrefix(pointer, "#/") {
		f.Line = doc.PointerLine(pointer)
	}
	return f
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation reports validation errors that still leave a
// usable document, such as unresolved refs.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref")
}
