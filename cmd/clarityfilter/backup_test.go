package main

import (
	"path/filepath"
	"strings"
	"testing"
)

// TestExportImport tests moving settings between databases.
func TestExportImport(t *testing.T) {
	t.Parallel()

	src := newTestEnv(t)
	src.mustExecute(t, "settings", "add", "Elon", "Some Name")
	src.mustExecute(t, "settings", "mode", "pixelate")
	src.mustExecute(t, "settings", "allow", "docs.example.com")

	backup := filepath.Join(src.dir, "backup.json")
	if out := src.mustExecute(t, "export", backup); !strings.Contains(out, "Exported 2 term(s)") {
		t.Errorf("unexpected export output: %s", out)
	}

	t.Run("import into an empty database", func(t *testing.T) {
		t.Parallel()

		dst := newTestEnv(t)
		out := dst.mustExecute(t, "import", backup)
		if !strings.Contains(out, "Imported 2 new term(s) and 1 new site(s)") {
			t.Errorf("unexpected import output: %s", out)
		}
		show := dst.mustExecute(t, "settings", "show")
		if !strings.Contains(show, "Elon") || !strings.Contains(show, "docs.example.com") {
			t.Errorf("unexpected settings:\n%s", show)
		}
		if !strings.Contains(show, "Mode:       hide") {
			t.Errorf("expected the mode to stay unchanged:\n%s", show)
		}
	})

	t.Run("export to stdout and import from stdin", func(t *testing.T) {
		t.Parallel()

		data := src.mustExecute(t, "export")
		if !strings.Contains(data, `"extension": "ClarityFilter"`) {
			t.Errorf("unexpected backup:\n%s", data)
		}

		dst := newTestEnv(t)
		dst.mustExecute(t, "settings", "add", "Elon")
		out, _, err := dst.execute(t, data, "import")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Imported 1 new term(s)") {
			t.Errorf("expected only the new term to count, got: %s", out)
		}
	})

	t.Run("malformed backup is rejected", func(t *testing.T) {
		t.Parallel()

		dst := newTestEnv(t)
		if _, _, err := dst.execute(t, `{"version":"1.0"}`, "import"); err == nil {
			t.Error("expected error for malformed backup")
		}
		if out := dst.mustExecute(t, "settings", "show"); !strings.Contains(out, "Revision:   0") {
			t.Errorf("expected nothing saved, got:\n%s", out)
		}
	})
}
