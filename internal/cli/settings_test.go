package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Runner-swapping tests are not parallel: the runners are package state.

func TestParseSettings_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "openspec.yaml")
	if err := os.WriteFile(cfgPath, []byte("format: json\nmaxRetries: 5\nhttpTimeout: 2s\nvalidate: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENSPEC_MAX_RETRIES", "7")
	t.Setenv("OPENSPEC_FORMAT", "yaml")

	var captured *ParseConfig
	parseRunner = func(ctx context.Context, cfg *ParseConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { parseRunner = runParse })

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", cfgPath, "--verbose", "parse", "api.yaml", "--format", "json", "--query", "users", "--json"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}
	if captured.Source != "api.yaml" || captured.Query != "users" || !captured.JSON {
		t.Errorf("unexpected args: %+v", captured)
	}
	s := captured.Settings
	if s.Format != "json" {
		t.Errorf("flag should win over env: format %q", s.Format)
	}
	if s.MaxRetries != 7 {
		t.Errorf("env should win over file: max retries %d", s.MaxRetries)
	}
	if s.HTTPTimeout != 2*time.Second {
		t.Errorf("file should win over defaults: timeout %v", s.HTTPTimeout)
	}
	if !s.Validation {
		t.Errorf("expected validation enabled by file")
	}
	if !s.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestSettings_InvalidValueIsUsageError(t *testing.T) {
	cases := [][]string{
		{"parse", "api.yaml", "--format", "toml"},
		{"import", "api.yaml", "--store", "nats", "--nats-url", " "},
		{"parse", "api.yaml", "--config", "/does/not/exist.yaml"},
	}
	for _, args := range cases {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)
		err := root.Execute()
		if err == nil {
			t.Fatalf("%v: expected error", args)
		}
		if _, ok := err.(usageError); !ok {
			t.Fatalf("%v: expected usage error, got %T: %v", args, err, err)
		}
	}
}

func TestServeSettings_FromFlags(t *testing.T) {
	var captured *ServeConfig
	serveRunner = func(ctx context.Context, cfg *ServeConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { serveRunner = runServe })

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"serve", "--addr", ":9999", "--store", "memory", "--allow-origin", "http://localhost:5173", "--allow-origin", "http://127.0.0.1:5173"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}
	if captured.Settings.Addr != ":9999" || captured.Settings.Store != "memory" || captured.Settings.Validation {
		t.Errorf("unexpected settings: %+v", captured.Settings)
	}
	if got := captured.Settings.AllowedOrigins; len(got) != 2 || got[0] != "http://localhost:5173" || got[1] != "http://127.0.0.1:5173" {
		t.Errorf("allowed origins: got %v", got)
	}
	if captured.Logger == nil {
		t.Errorf("expected a logger")
	}
}
