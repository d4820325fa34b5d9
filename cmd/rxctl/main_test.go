package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
[store]
driver = "jsonfile"
path = "store.json"

[[kinds]]
name = "todos"
sort_by = "order"
`
	path := filepath.Join(dir, "rxdata.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func rxctl(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_RecordLifecycle(t *testing.T) {
	cfg := writeTestConfig(t)

	code, out, errOut := rxctl(t, "-c", cfg, "set", "todos", "--id=t1", "title=write", "order=1")
	assert.Equal(t, code, 0)
	assert.Equal(t, errOut, "")
	assert.Equal(t, out, `{"id":"t1","order":1,"title":"write"}`+"\n")

	code, _, _ = rxctl(t, "-c", cfg, "set", "todos", "title=read", "order=0")
	assert.Equal(t, code, 0)

	code, out, _ = rxctl(t, "-c", cfg, "list", "todos")
	assert.Equal(t, code, 0)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, len(lines), 2)
	if !strings.Contains(lines[0], `"title":"read"`) {
		t.Errorf("first record = %s, want the lowest order", lines[0])
	}

	code, out, _ = rxctl(t, "-c", cfg, "set", "todos", "--id=t1", "done=true")
	assert.Equal(t, code, 0)
	assert.Equal(t, out, `{"done":true,"id":"t1","order":1,"title":"write"}`+"\n")

	code, out, _ = rxctl(t, "-c", cfg, "get", "todos", "t1")
	assert.Equal(t, code, 0)
	assert.Equal(t, out, `{"done":true,"id":"t1","order":1,"title":"write"}`+"\n")

	code, out, _ = rxctl(t, "-c", cfg, "kinds")
	assert.Equal(t, code, 0)
	assert.Equal(t, out, "todos\t/todos\t2\n")

	code, _, _ = rxctl(t, "-c", cfg, "remove", "todos", "t1")
	assert.Equal(t, code, 0)

	code, _, errOut = rxctl(t, "-c", cfg, "get", "todos", "t1")
	assert.Equal(t, code, 1)
	if !strings.Contains(errOut, "record not found") {
		t.Errorf("stderr = %q, want not found", errOut)
	}
}

func TestRun_Pretty(t *testing.T) {
	cfg := writeTestConfig(t)

	code, out, _ := rxctl(t, "-c", cfg, "--pretty", "set", "todos", "--id=a", "n=1")
	assert.Equal(t, code, 0)
	assert.Equal(t, out, "{\n  \"id\": \"a\",\n  \"n\": 1\n}\n")
}

func TestRun_Errors(t *testing.T) {
	cfg := writeTestConfig(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown kind", []string{"-c", cfg, "list", "users"}, 1},
		{"bad assignment", []string{"-c", cfg, "set", "todos", "title"}, 1},
		{"remove missing", []string{"-c", cfg, "remove", "todos", "nope"}, 1},
		{"watch unknown kind", []string{"-c", cfg, "watch", "users"}, 1},
		{"bad verbosity", []string{"-c", cfg, "-v", "loud", "kinds"}, 2},
		{"no command", []string{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := rxctl(t, tt.args...)
			assert.Equal(t, code, tt.code)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := rxctl(t, "--version")
	assert.Equal(t, code, 0)
	if !strings.HasPrefix(out, "rxctl dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestParseAssignments(t *testing.T) {
	attrs, err := parseAssignments([]string{"s=hello", "n=42", "b=false", "l=[1,2]", "e="})
	assert.Equal(t, err, nil)
	assert.Equal(t, attrs["s"], "hello")
	assert.Equal(t, attrs["n"], float64(42))
	assert.Equal(t, attrs["b"], false)
	assert.Equal(t, attrs["l"], []any{float64(1), float64(2)})
	assert.Equal(t, attrs["e"], "")

	_, err = parseAssignments([]string{"=x"})
	if err == nil {
		t.Error("expected error for empty key")
	}
}
