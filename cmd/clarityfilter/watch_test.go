package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const elonCard = `<div class="card" id="card-new"><a href="/s/new"><img src="/i/new.jpg"></a><h3>Elon again</h3><p>Summary new</p></div>`

// TestWatchCmd tests following a growing document.
func TestWatchCmd(t *testing.T) {
	t.Parallel()

	t.Run("appended fragments are filtered", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mustExecute(t, "settings", "add", "Elon")
		env.mustExecute(t, "settings", "enable")
		page := env.writeFile(t, "page.html", newsPage(10, -1))
		output := filepath.Join(env.dir, "final.html")

		stdin := "<div class=\"card\" id=\"card-10\"><a href=\"/s/10\"><img src=\"/i/10.jpg\"></a><h3>Story</h3><p>Summary</p></div>\n" +
			elonCard + "\n"
		_, stderr, err := env.execute(t, stdin, "watch", page,
			"--into", "feed", "-o", output, "--debounce", "10ms", "--poll", "20ms")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}

		final, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("expected final document: %v", err)
		}
		if !strings.Contains(string(final), `class="card cf-hidden" id="card-new"`) {
			t.Errorf("expected the appended card to be hidden in:\n%s", final)
		}
		if strings.Count(string(final), `cf-hidden"`) != 1 {
			t.Error("expected exactly one hidden container")
		}
		if !strings.Contains(stderr, "[initial] newly=0 active=0") {
			t.Errorf("expected initial scan event, got:\n%s", stderr)
		}
		if !strings.Contains(stderr, "active=1") {
			t.Errorf("expected a scan with one active mark, got:\n%s", stderr)
		}

		history := env.mustExecute(t, "history")
		if !strings.Contains(history, "initial") {
			t.Errorf("expected watch scans in history, got:\n%s", history)
		}
	})

	t.Run("directives", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mustExecute(t, "settings", "add", "Elon")
		env.mustExecute(t, "settings", "enable")
		env.mustExecute(t, "settings", "allow", "docs.example.com")
		page := env.writeFile(t, "page.html", newsPage(20, 7))

		stdin := "!clear\n!rescan\n!navigate https://docs.example.com/\n"
		stdout, stderr, err := env.execute(t, stdin, "watch", page, "--debounce", "10ms", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		for _, want := range []string{`"trigger":"initial"`, `"trigger":"rescan"`, `"trigger":"navigate"`, `"skipped":"whitelisted"`} {
			if !strings.Contains(stderr, want) {
				t.Errorf("expected %s in events:\n%s", want, stderr)
			}
		}
		if strings.Contains(stdout, `cf-hidden" id="card-7"`) {
			t.Error("expected no concealment after navigating to a whitelisted site")
		}
		if !strings.Contains(stdout, `id="card-7"`) {
			t.Errorf("expected the final document on stdout, got:\n%s", stdout)
		}
	})

	t.Run("match timeout flag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mustExecute(t, "settings", "add", "Elon")
		env.mustExecute(t, "settings", "enable")
		page := env.writeFile(t, "page.html", newsPage(20, 7))

		stdout, stderr, err := env.execute(t, "", "watch", page, "--debounce", "10ms", "--match-timeout", "2s")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		if !strings.Contains(stdout, hiddenCard7) {
			t.Errorf("expected card-7 to be hidden in:\n%s", stdout)
		}

		if _, _, err := env.execute(t, "", "watch", page, "--match-timeout", "soon"); err == nil {
			t.Error("expected error for an invalid duration")
		}
	})

	t.Run("unknown target element", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		page := env.writeFile(t, "page.html", newsPage(3, -1))
		if _, _, err := env.execute(t, "<p>x</p>\n", "watch", page, "--into", "missing"); err == nil {
			t.Error("expected error for a missing element")
		}
	})

	t.Run("requires one target", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.execute(t, "", "watch"); err == nil {
			t.Error("expected error without a target")
		}
	})
}
