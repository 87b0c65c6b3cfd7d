package manifest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleManifest = `
[project]
name = "ticker-service"
version = "0.1.0"
requires-python = ">=3.11"
dependencies = [
    "mcp[cli]>=1.6.0",
    "yfinance>=0.2.55",
    "pandas",
]
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Project{
		Name:           "ticker-service",
		Version:        "0.1.0",
		RequiresPython: ">=3.11",
		Dependencies:   []string{"mcp[cli]>=1.6.0", "yfinance>=0.2.55", "pandas"},
	}
	if diff := cmp.Diff(want, m.Project); diff != "" {
		t.Fatalf("project mismatch (-want +got):\n%s", diff)
	}

	if string(m.Raw) != sampleManifest {
		t.Fatal("Raw does not preserve the original bytes")
	}
}

func TestParseManifestMissingName(t *testing.T) {
	_, err := ParseManifest([]byte("[project]\nversion = \"1.0\"\n"))
	if !errors.Is(err, ErrManifest) {
		t.Fatalf("err = %v, want ErrManifest", err)
	}
}

func TestParseManifestBadTOML(t *testing.T) {
	_, err := ParseManifest([]byte("[project\nname ="))
	if !errors.Is(err, ErrManifest) {
		t.Fatalf("err = %v, want ErrManifest", err)
	}
}

func TestDependencyNames(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"mcp", "yfinance", "pandas"}
	if diff := cmp.Diff(want, m.DependencyNames()); diff != "" {
		t.Fatalf("dependency names mismatch (-want +got):\n%s", diff)
	}
}

func TestRequirementName(t *testing.T) {
	tests := []struct {
		requirement string
		want        string
	}{
		{"yfinance", "yfinance"},
		{"yfinance>=0.2.55", "yfinance"},
		{"mcp[cli]>=1.6.0", "mcp"},
		{"pandas >=2.0; python_version >= '3.9'", "pandas"},
		{"  requests  ", "requests"},
		{"typing_extensions", "typing_extensions"},
		{"zope.interface==6.0", "zope.interface"},
		{"pkg @ https://example.com/pkg.whl", "pkg"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RequirementName(tt.requirement); got != tt.want {
			t.Errorf("RequirementName(%q) = %q, want %q", tt.requirement, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"yfinance", "yfinance"},
		{"Typing_Extensions", "typing-extensions"},
		{"zope.interface", "zope-interface"},
		{"a--b__c..d", "a-b-c-d"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.name); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
