package document

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// SpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else an error.
func SpecVersion(doc *Document) (int, error) {
	if v := doc.Lookup("openapi"); v != nil && v.Kind == yaml.ScalarNode && strings.HasPrefix(strings.TrimSpace(v.Value), "3.") {
		return 3, nil
	}
	if v := doc.Lookup("swagger"); v != nil && v.Kind == yaml.ScalarNode && strings.HasPrefix(strings.TrimSpace(v.Value), "2.") {
		return 2, nil
	}
	return 0, &Error{Code: InputError, Message: "missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')"}
}

// Upgrade converts a Swagger 2.0 document (YAML or JSON) to OpenAPI 3 using
// kin-openapi's openapi2conv. OpenAPI 3 input is returned as parsed.
func Upgrade(ctx context.Context, data []byte) (*Document, error) {
	doc, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	version, err := SpecVersion(doc)
	if err != nil {
		return nil, err
	}
	if version == 3 {
		return doc, nil
	}

	fixV2Operations(doc.Root())

	raw, err := doc.EncodeJSON()
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, &Error{Code: ConversionError, Message: fmt.Sprintf("read swagger 2.0: %v", err), Cause: err}
	}
	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, &Error{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Cause: err}
	}
	if err := openapi3.NewLoader().ResolveRefsIn(v3, nil); err != nil && !canProceedDespiteValidation(err) {
		return nil, &Error{Code: ConversionError, Message: fmt.Sprintf("resolve refs: %v", err), Cause: err}
	}
	if err := v3.Validate(ctx); err != nil && !canProceedDespiteValidation(err) {
		return nil, &Error{Code: ValidationError, Message: err.Error(), JSONPointer: extractJSONPointer(err), Cause: err}
	}
	out, err := json.Marshal(v3)
	if err != nil {
		return nil, &Error{Code: SerializeError, Message: fmt.Sprintf("encode openapi 3: %v", err), Cause: err}
	}
	root, err := decodeJSON(out)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}
