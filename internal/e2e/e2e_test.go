package e2e

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	cli "github.com/mark3labs/openspec-studio/internal/cli"
)

// graph with a tagged path, a method and a bearer scheme
const graphSnapshot = `{
  "nodes": [
    {"id": "central", "category": "root", "position": {"x": 300, "y": 200}},
    {"id": "t1", "category": "tag", "position": {"x": 0, "y": 0}, "properties": {"name": "pets"}},
    {"id": "p1", "category": "path", "position": {"x": 100, "y": 0}, "properties": {"path": "/pets", "summary": "Pets"}},
    {"id": "m1", "category": "method", "position": {"x": 100, "y": 100},
     "properties": {"method": "get", "tags": "pets", "summary": "List pets", "responses": "{\"200\": {\"description\": \"ok\"}}"}},
    {"id": "sec", "category": "security", "position": {"x": 200, "y": 0},
     "properties": {"name": "bearerAuth", "type": "http", "scheme": "bearer"}}
  ],
  "edges": [
    {"id": "e1", "source": "central", "target": "t1"},
    {"id": "e2", "source": "central", "target": "p1"},
    {"id": "e3", "source": "p1", "target": "m1"},
    {"id": "e4", "source": "central", "target": "sec"}
  ]
}`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
	return out.String()
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

// pipeline scaffolds a document, round-trips it through JSON, compiles the
// graph and exports the applied workspace, all inside dir.
func pipeline(t *testing.T, dir string) {
	t.Helper()
	doc := filepath.Join(dir, "openapi.yaml")
	graph := filepath.Join(dir, "graph.json")
	store := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(graph, []byte(graphSnapshot), 0o600); err != nil {
		t.Fatalf("write graph: %v", err)
	}

	runCLI(t, "init", "--out", doc)
	runCLI(t, "convert", doc, "--out", filepath.Join(dir, "openapi.json"))
	runCLI(t, "convert", filepath.Join(dir, "openapi.json"), "--out", filepath.Join(dir, "roundtrip.yaml"))
	runCLI(t, "compile", graph, "--out", filepath.Join(dir, "compiled.yaml"))
	runCLI(t, "compile", graph, "--apply", "--store-path", store)
	runCLI(t, "export", "--store-path", store, "--dir", filepath.Join(dir, "export"))
}

func TestE2E_Pipeline_Deterministic(t *testing.T) {
	t.Parallel()
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	pipeline(t, dir1)
	pipeline(t, dir2)

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}

	want := []string{"compiled.yaml", "export/openapi.yaml", "graph.json", "openapi.json", "openapi.yaml", "roundtrip.yaml"}
	if !slicesEqual(files1, want) {
		t.Fatalf("unexpected files: %v", files1)
	}

	// YAML -> JSON -> YAML keeps the template's key order and content.
	orig := mustRead(t, filepath.Join(dir1, "openapi.yaml"))
	rt := mustRead(t, filepath.Join(dir1, "roundtrip.yaml"))
	if firstKeys(orig) != firstKeys(rt) {
		t.Fatalf("top-level key order changed:\n%s\nvs\n%s", firstKeys(orig), firstKeys(rt))
	}

	compiled := mustRead(t, filepath.Join(dir1, "compiled.yaml"))
	if compiled != mustRead(t, filepath.Join(dir1, "export", "openapi.yaml")) {
		t.Fatalf("applied workspace should hold the compiled document")
	}
	for _, s := range []string{"/pets:", "summary: List pets", "bearerAuth:", "name: pets"} {
		if !strings.Contains(compiled, s) {
			t.Fatalf("compiled document missing %q:\n%s", s, compiled)
		}
	}
}

func TestE2E_ParseUpgradedDocument(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "swagger.json")
	swagger := `{"swagger": "2.0", "info": {"title": "Pets", "version": "1.0.0"},
  "paths": {"/pets": {"get": {"summary": "List pets", "responses": {"200": {"description": "ok"}}}}},
  "definitions": {"Pet": {"type": "object"}}}`
	if err := os.WriteFile(src, []byte(swagger), 0o600); err != nil {
		t.Fatalf("write swagger: %v", err)
	}

	upgraded := filepath.Join(dir, "openapi.yaml")
	runCLI(t, "upgrade", src, "--out", upgraded)
	out := runCLI(t, "parse", upgraded, "--validate=false")
	for _, s := range []string{"Endpoints (1 paths):", "    GET     List pets", "Schemas (1):", "  Pet"} {
		if !strings.Contains(out, s) {
			t.Fatalf("parse report missing %q:\n%s", s, out)
		}
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

// firstKeys lists the unindented mapping keys of a YAML document.
func firstKeys(doc string) string {
	var keys []string
	for _, line := range strings.Split(doc, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '-' {
			continue
		}
		if i := strings.Index(line, ":"); i > 0 {
			keys = append(keys, line[:i])
		}
	}
	return strings.Join(keys, ",")
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
