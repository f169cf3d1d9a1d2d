package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the result of one successful parse. Its parts always describe
// the same document; a zero Snapshot is the empty state after a failure.
type Snapshot struct {
	Document  *Document
	Endpoints EndpointIndex
	Schemas   SchemaIndex
}

// Empty reports whether the snapshot holds no document.
func (s Snapshot) Empty() bool { return s.Document.IsEmpty() }

// Parse decodes text in format f and derives both indexes. A failure returns an
// *Error with Code ParseError and, when the parser reported one, a line number.
func Parse(text string, f Format) (Snapshot, error) {
	doc, err := Decode([]byte(text), f)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Document:  doc,
		Endpoints: ExtractEndpoints(doc),
		Schemas:   ExtractSchemas(doc),
	}, nil
}

// Decode parses raw bytes without deriving indexes.
func Decode(data []byte, f Format) (*Document, error) {
	if f == JSON {
		root, err := decodeJSON(data)
		if err != nil {
			return nil, err
		}
		return New(root), nil
	}
	return decodeYAML(data)
}

// Convert re-serializes text into the other format through a full parse.
// fromYAML selects the input format. Output is never partial: any parse or
// serialize failure is returned as an error.
func Convert(text string, fromYAML bool) (string, error) {
	from := JSON
	if fromYAML {
		from = YAML
	}
	doc, err := Decode([]byte(text), from)
	if err != nil {
		return "", err
	}
	out, err := doc.Encode(from.Other())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var lineRe = regexp.MustCompile(`line (\d+)`)

// lineFromMessage extracts the first "line N" from a parser message.
func lineFromMessage(msg string) int {
	m := lineRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func decodeYAML(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return nil, parseError(err.Error(), err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, parseError(err.Error(), err)
		}
		return nil, parseError(fmt.Sprintf("yaml: line %d: expected a single document in the stream", extra.Line), nil)
	}
	return New(&root), nil
}

func parseError(msg string, cause error) *Error {
	return &Error{Code: ParseError, Message: msg, Line: lineFromMessage(msg), Cause: cause}
}

// decodeJSON parses strict JSON into a node tree that keeps key order and
// source lines. Duplicate keys keep the last value.
func decodeJSON(data []byte) (*yaml.Node, error) {
	lines := newLineTable(data)
	var syntax any
	if err := json.Unmarshal(data, &syntax); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			off := int(se.Offset) - 1
			if off < 0 {
				off = 0
			}
			return nil, parseError(fmt.Sprintf("json: line %d: %s", lines.at(off), se.Error()), err)
		}
		return nil, parseError("json: "+err.Error(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSON(dec, lines)
	if err != nil {
		return nil, parseError("json: "+err.Error(), err)
	}
	return n, nil
}

func readJSON(dec *json.Decoder, lines lineTable) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	line := lines.at(int(dec.InputOffset()) - 1)
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			m := NewMapping()
			m.Line = line
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := String(fmt.Sprint(kt))
				key.Line = lines.at(int(dec.InputOffset()) - 1)
				val, err := readJSON(dec, lines)
				if err != nil {
					return nil, err
				}
				setKey(m, key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			s := NewSequence()
			s.Line = line
			for dec.More() {
				val, err := readJSON(dec, lines)
				if err != nil {
					return nil, err
				}
				Append(s, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", v)
	case string:
		n := String(v)
		n.Line = line
		return n, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v), Line: line}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: line}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// lineTable maps byte offsets to 1-based line numbers.
type lineTable []int

func newLineTable(data []byte) lineTable {
	starts := lineTable{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (t lineTable) at(offset int) int {
	if offset < 0 {
		offset = 0
	}
	return sort.Search(len(t), func(i int) bool { return t[i] > offset })
}
