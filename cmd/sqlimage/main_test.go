package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI invokes the command line against store and returns stdout.
func runCLI(t *testing.T, store string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-store", store}, args...), &out, io.Discard)
	return out.String(), err
}

// mustRun is runCLI for commands that are expected to succeed.
func mustRun(t *testing.T, store string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, store, args...)
	if err != nil {
		t.Fatalf("sqlimage %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "catalog.db")

	mustRun(t, store, "create", "inv", "CREATE TABLE items(id INTEGER, name TEXT, price REAL)")
	mustRun(t, store, "exec", "inv", "INSERT INTO items VALUES (1,'bolt',0.25),(2,'nut',0.1)")

	if out := mustRun(t, store, "query", "inv", "SELECT id, name, price FROM items ORDER BY id"); out != "[1,\"bolt\",0.25]\n[2,\"nut\",0.1]\n" {
		t.Errorf("query output = %q", out)
	}
	if out := mustRun(t, store, "count", "inv", "items"); out != "2\n" {
		t.Errorf("count output = %q", out)
	}
	if out := mustRun(t, store, "tables", "inv"); out != "items\n" {
		t.Errorf("tables output = %q", out)
	}
	if out := mustRun(t, store, "schema", "inv"); !strings.Contains(out, "CREATE TABLE items") {
		t.Errorf("schema output = %q", out)
	}

	exported := filepath.Join(dir, "inv.db")
	mustRun(t, store, "export", "inv", exported)
	mustRun(t, store, "import", "copy", exported)

	lines := strings.Split(strings.TrimSpace(mustRun(t, store, "list")), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "copy\t") || !strings.HasPrefix(lines[1], "inv\t") {
		t.Errorf("unexpected list output %q", lines)
	}

	mustRun(t, store, "rm", "copy")
	if _, err := runCLI(t, store, "count", "copy", "items"); err == nil {
		t.Error("count on a removed image should fail")
	}
}

func TestCLIVacuumMany(t *testing.T) {
	store := filepath.Join(t.TempDir(), "catalog.db")
	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		mustRun(t, store, "-compress", "zstd", "create", name,
			"CREATE TABLE t(x); INSERT INTO t SELECT randomblob(512) FROM (SELECT 1 UNION SELECT 2 UNION SELECT 3); DELETE FROM t")
	}

	mustRun(t, store, append([]string{"-parallel", "2", "vacuum"}, names...)...)

	for _, name := range names {
		if out := mustRun(t, store, "count", name, "t"); out != "0\n" {
			t.Errorf("count %s = %q", name, out)
		}
	}

	if _, err := runCLI(t, store, "vacuum", "a", "missing"); err == nil {
		t.Error("vacuum of a missing image should fail")
	}
}

func TestCLITempFileStrategy(t *testing.T) {
	store := filepath.Join(t.TempDir(), "catalog.db")
	tmp := t.TempDir()

	mustRun(t, store, "-tempdir", tmp, "create", "x", "CREATE TABLE t(a); INSERT INTO t VALUES (42)")
	if out := mustRun(t, store, "-tempdir", tmp, "query", "x", "SELECT a FROM t"); out != "[42]\n" {
		t.Errorf("query output = %q", out)
	}

	left, err := filepath.Glob(filepath.Join(tmp, "*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("temp files left behind: %v", left)
	}
}

func TestCLIUsageErrors(t *testing.T) {
	store := filepath.Join(t.TempDir(), "catalog.db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"wrong arity", []string{"count", "only-one"}, "expected 2 arguments"},
		{"bad log level", []string{"-log-level", "loud", "list"}, "invalid -log-level"},
		{"bad codec", []string{"-compress", "gzip", "list"}, "unknown codec"},
		{"missing image", []string{"query", "nope", "SELECT 1"}, "image not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, store, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected an error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
