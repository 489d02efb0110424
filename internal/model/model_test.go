package model

import (
	"errors"
	"testing"

	"github.com/nao1215/clarityfilter/internal/settings"
)

// TestScanReport tests the report helpers.
func TestScanReport(t *testing.T) {
	t.Parallel()

	t.Run("Pass creates and reuses counters", func(t *testing.T) {
		t.Parallel()

		r := NewScanReport("https://example.com/")
		r.Pass("cards").Applied++
		r.Pass("cards").Applied++
		r.Pass("text").Matched = 3

		if len(r.Passes) != 2 || r.Passes[0].Applied != 2 || r.Passes[1].Matched != 3 {
			t.Errorf("unexpected passes %+v", r.Passes)
		}
	})

	t.Run("SetError keeps the first error", func(t *testing.T) {
		t.Parallel()

		r := NewScanReport("")
		first := errors.New("first")
		r.SetError(first)
		r.SetError(errors.New("second"))
		r.SetError(nil)
		if !errors.Is(r.Error, first) || r.ErrorMessage != "first" {
			t.Errorf("unexpected error %v", r.Error)
		}
	})
}

// TestSummary tests totals over reports.
func TestSummary(t *testing.T) {
	t.Parallel()

	reports := []*ScanReport{
		{Mode: settings.ModeHide, Active: 2},
		{Mode: settings.ModeBlur, Active: 1},
		{Mode: settings.ModeHide, Active: 0},
		{Skipped: SkipWhitelisted},
		{ErrorMessage: "boom"},
		nil,
	}
	s := NewSummary(reports)

	if s.Documents != 5 || s.Filtered != 2 || s.Containers != 3 || s.Failed != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.ByMode[settings.ModeHide] != 2 || s.ByMode[settings.ModeBlur] != 1 {
		t.Errorf("unexpected per mode counts %v", s.ByMode)
	}
	if got := s.SkipReasons(); len(got) != 1 || got[0] != SkipWhitelisted {
		t.Errorf("unexpected skip reasons %v", got)
	}
}

// TestPage tests page helpers.
func TestPage(t *testing.T) {
	t.Parallel()

	p := NewPage("https://example.com/", []byte("<p>x</p>"))
	if len(p.Hash) != 64 {
		t.Errorf("expected hex sha256, got %q", p.Hash)
	}
	if !p.IsHTML() {
		t.Error("expected page without content type to be HTML")
	}
	p.ContentType = "text/html; charset=utf-8"
	if !p.IsHTML() {
		t.Error("expected text/html to be HTML")
	}
	p.ContentType = "application/json"
	if p.IsHTML() {
		t.Error("expected JSON not to be HTML")
	}
}
