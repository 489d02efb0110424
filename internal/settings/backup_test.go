package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestExport tests the backup format.
func TestExport(t *testing.T) {
	t.Parallel()

	s := Settings{Terms: []string{"Elon"}, Mode: ModeBlur, Whitelist: []string{"example.com"}, PixelCellSize: 10}
	var buf bytes.Buffer
	if err := Export(&buf, s, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("backup is not JSON: %v", err)
	}
	if raw["version"] != BackupVersion || raw["extension"] != BackupExtension {
		t.Errorf("unexpected header %v", raw)
	}
	if !strings.Contains(buf.String(), `"exportDate": "2025-03-01T12:00:00Z"`) {
		t.Errorf("unexpected export date in %s", buf.String())
	}
	if strings.Contains(strings.ToLower(buf.String()), "pin") {
		t.Error("backup must not contain authorization data")
	}
}

// TestImport tests backup validation and merging.
func TestImport(t *testing.T) {
	t.Parallel()

	current := Normalize(Settings{Terms: []string{"Elon"}, Mode: ModeBlur, PixelCellSize: 20})

	t.Run("rejects names with markup", func(t *testing.T) {
		t.Parallel()

		in := `{"version":"1.0","data":{"names":["elon","AI","Crypto <b>"],"whitelist":["news.org"],"mode":"hide","pixelCell":5}}`
		got, res, err := Import(strings.NewReader(in), current)
		if err == nil {
			t.Fatalf("expected validation error for %q", "Crypto <b>")
		}
		if !errors.Is(err, ErrInvalidBackup) {
			t.Errorf("expected ErrInvalidBackup, got %v", err)
		}
		if !got.Equal(current) || res != (ImportResult{}) {
			t.Error("expected current settings on failure")
		}
	})

	t.Run("valid backup is merged", func(t *testing.T) {
		t.Parallel()

		in := `{"version":"1.0","data":{"names":["elon","AI","Crypto (coins)"],"whitelist":["news.org"],"mode":"hide","pixelCell":5}}`
		got, res, err := Import(strings.NewReader(in), current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.AddedTerms != 2 || res.AddedSites != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		if got.Mode != ModeBlur || got.PixelCellSize != 20 {
			t.Errorf("expected preferences to be kept, got %+v", got)
		}
	})

	t.Run("export then import adds nothing new", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := Export(&buf, current, time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, res, err := Import(&buf, current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.AddedTerms != 0 || !got.Equal(current) {
			t.Errorf("expected no change, got %+v %+v", res, got)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{`nope`, `{"data":{}}`, `{"data":{"names":[""]}}`, `{"data":{"names":"x"}}`} {
			if _, _, err := Import(strings.NewReader(in), current); !errors.Is(err, ErrInvalidBackup) {
				t.Errorf("expected ErrInvalidBackup for %s, got %v", in, err)
			}
		}
	})

	t.Run("empty backup", func(t *testing.T) {
		t.Parallel()

		if _, _, err := Import(strings.NewReader(`{"data":{"names":[]}}`), current); !errors.Is(err, ErrEmptyBackup) {
			t.Errorf("expected ErrEmptyBackup, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()

		big := strings.Repeat(" ", MaxBackupSize+1)
		if _, _, err := Import(strings.NewReader(big), current); !errors.Is(err, ErrBackupTooLarge) {
			t.Errorf("expected ErrBackupTooLarge, got %v", err)
		}
	})
}
