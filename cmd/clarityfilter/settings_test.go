package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/clarityfilter/internal/settings"
)

// TestSettingsCmd tests reading and changing stored settings.
func TestSettingsCmd(t *testing.T) {
	t.Parallel()

	t.Run("fresh database shows defaults", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		out := env.mustExecute(t, "settings", "show")
		for _, want := range []string{"Revision:   0", "Filtering:  disabled", "Mode:       hide", "Terms:      (none)"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("changes are saved as revisions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mustExecute(t, "settings", "add", "Elon", "Some Name")
		env.mustExecute(t, "settings", "enable")
		env.mustExecute(t, "settings", "mode", "BLUR")
		env.mustExecute(t, "settings", "allow", "Docs.Example.com")
		env.mustExecute(t, "settings", "pixel-cell", "20")
		env.mustExecute(t, "settings", "remove", "elon")

		out := env.mustExecute(t, "settings", "show")
		for _, want := range []string{
			"Revision:   6",
			"Filtering:  enabled",
			"Mode:       blur",
			"Pixel cell: 20px",
			"Terms:      Some Name",
			"Whitelist:  docs.example.com",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}

		env.mustExecute(t, "settings", "disallow", "docs.example.com")
		if out := env.mustExecute(t, "settings", "show"); !strings.Contains(out, "Whitelist:  (none)") {
			t.Errorf("expected empty whitelist in:\n%s", out)
		}
	})

	t.Run("unchanged settings are not saved", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if out := env.mustExecute(t, "settings", "disable"); !strings.Contains(out, "Settings unchanged") {
			t.Errorf("expected unchanged message, got:\n%s", out)
		}
		if out := env.mustExecute(t, "settings", "show"); !strings.Contains(out, "Revision:   0") {
			t.Errorf("expected no revision, got:\n%s", out)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.execute(t, "", "settings", "mode", "sparkle"); !errors.Is(err, settings.ErrInvalidMode) {
			t.Errorf("expected ErrInvalidMode, got %v", err)
		}
		if _, _, err := env.execute(t, "", "settings", "pixel-cell", "500"); !errors.Is(err, settings.ErrInvalidPixelCellSize) {
			t.Errorf("expected ErrInvalidPixelCellSize, got %v", err)
		}
		if _, _, err := env.execute(t, "", "settings", "pixel-cell", "big"); err == nil {
			t.Error("expected error for non-numeric size")
		}
		if _, _, err := env.execute(t, "", "settings", "add"); err == nil {
			t.Error("expected error without terms")
		}
	})
}
