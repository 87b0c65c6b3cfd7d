package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSkipList(t *testing.T) {
	skip := skipList([]string{"dist"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"server.py", false},
		{".git", true},
		{".git/config", true},
		{"pkg/__pycache__/x.pyc", true},
		{".venv", true},
		{"dist", true},
		{"dist/image.tar", true},
		{"pkg/util.py", false},
		{"gitignore", false},
	}

	for _, tt := range tests {
		if got := skip(tt.rel, false); got != tt.want {
			t.Errorf("skip(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestSkipPaths(t *testing.T) {
	skip := skipPaths(skipList(nil), []string{"dist", "out/images"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"dist", true},
		{"dist/image.tar", true},
		{"dist/oci/index.json", true},
		{"out/images", true},
		{"out/images/image.tar", true},
		{"out", false},
		{"distribution.py", false},
		{"pkg/dist", false},
		{".git/config", true},
		{"server.py", false},
	}

	for _, tt := range tests {
		if got := skip(tt.rel, false); got != tt.want {
			t.Errorf("skip(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestCopyTree(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"server.py":         "print('hi')\n",
		"pkg/util.py":       "x = 1\n",
		".git/config":       "noise",
		"__pycache__/a.pyc": "bytecode",
	})
	dst := t.TempDir()

	if err := copyTree(src, dst, skipList(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"server.py", "pkg/util.py"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	for _, name := range []string{".git", "__pycache__"} {
		if _, err := os.Stat(filepath.Join(dst, name)); !os.IsNotExist(err) {
			t.Errorf("excluded entry %s was copied", name)
		}
	}
}

func TestCopyTreeOverwrites(t *testing.T) {
	src := writeFiles(t, map[string]string{"pyproject.toml": "new"})
	dst := writeFiles(t, map[string]string{"pyproject.toml": "old"})

	if err := copyTree(src, dst, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "pyproject.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Fatalf("content = %q, want %q", data, "new")
	}
}

func TestCopyTreeSymlink(t *testing.T) {
	src := writeFiles(t, map[string]string{"real.py": "x"})
	if err := os.Symlink("real.py", filepath.Join(src, "link.py")); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()

	if err := copyTree(src, dst, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target, err := os.Readlink(filepath.Join(dst, "link.py"))
	if err != nil {
		t.Fatal(err)
	}
	if target != "real.py" {
		t.Fatalf("link target = %q, want real.py", target)
	}
}

func TestCopyTreePreservesMode(t *testing.T) {
	src := t.TempDir()
	script := filepath.Join(src, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()

	if err := copyTree(src, dst, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "run.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("mode = %o, want 0755", info.Mode().Perm())
	}
}
