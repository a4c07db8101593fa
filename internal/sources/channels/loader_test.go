package channels

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWatchlist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeWatchlist(t, `
channels:
  - id: UCuAXFkgsw1L7xaCfnd5JJOw
    name: Rick Astley
  - id: UChLtXXpo4Ge1ReTEboVvTDg
`)

	entries, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "UCuAXFkgsw1L7xaCfnd5JJOw" || entries[0].Name != "Rick Astley" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Name != "" {
		t.Errorf("name should be optional, got %q", entries[1].Name)
	}

	ids := IDs(entries)
	if len(ids) != 2 || ids[1] != "UChLtXXpo4Ge1ReTEboVvTDg" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "{{{"},
		{name: "empty list", content: "channels: []"},
		{name: "missing id", content: "channels:\n  - name: nameless"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWatchlist(t, tt.content)
			if _, err := NewLoader(path).Load(); err == nil {
				t.Error("Load() returned nil error, want failure")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := NewLoader("/nonexistent/channels.yaml").Load(); err == nil {
		t.Error("Load() returned nil error for a missing file")
	}
}
