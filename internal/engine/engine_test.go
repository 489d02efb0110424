package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/redact"
	"github.com/nao1215/clarityfilter/internal/settings"
)

func parse(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString("<!DOCTYPE html><html><head></head><body>"+body+"</body></html>", "https://news.example.com/world")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func enabled(mode settings.Mode, terms ...string) settings.Settings {
	s := settings.Default()
	s.Enabled = true
	s.Mode = mode
	s.Terms = terms
	return s
}

func newEngine(doc *dom.Document, s settings.Settings, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(doc, s, opts...)
}

func cardGrid(n int, titles map[int]string) string {
	var b strings.Builder
	b.WriteString(`<main><section class="grid">`)
	for i := 0; i < n; i++ {
		title, ok := titles[i]
		if !ok {
			title = fmt.Sprintf("Story number %d", i)
		}
		fmt.Fprintf(&b, `<div class="card" id="card-%d"><a href="/s/%d"><img src="/i/%d.jpg"></a><h3>%s</h3><p>Summary %d</p></div>`,
			i, i, i, title, i)
	}
	b.WriteString(`</section></main>`)
	return b.String()
}

func marks(doc *dom.Document) map[string]settings.Mode {
	out := make(map[string]settings.Mode)
	for _, n := range doc.QueryAll(0, redact.Marked) {
		mode, _ := redact.MarkOf(n)
		out[dom.Attr(n, "id")] = mode
	}
	return out
}

// TestScan tests a single scan over typical pages.
func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("marks only the matching card in a grid", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, cardGrid(20, map[int]string{7: "Elon buys another thing"}))
		e := newEngine(doc, enabled(settings.ModeHide, "Elon"))

		report := e.Scan(context.Background())

		if report.Newly != 1 || report.Active != 1 {
			t.Fatalf("expected one container, got newly=%d active=%d", report.Newly, report.Active)
		}
		got := marks(doc)
		if got["card-7"] != settings.ModeHide {
			t.Errorf("expected card-7 hidden, got %v", got)
		}
	})

	t.Run("runs the passes in order", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>nothing here</p>`)
		report := newEngine(doc, enabled(settings.ModeBlur, "Elon")).Scan(context.Background())

		want := []string{PassCards, PassItems, PassText}
		if strings.Join(report.PerformedPasses, ",") != strings.Join(want, ",") {
			t.Errorf("expected passes %v, got %v", want, report.PerformedPasses)
		}
		if report.Host != "news.example.com" {
			t.Errorf("expected host news.example.com, got %q", report.Host)
		}
	})

	t.Run("text in headings outside cards", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<div id="box"><h2 id="h">Elon speaks</h2></div><div><h2>Other</h2></div>`)
		report := newEngine(doc, enabled(settings.ModeBlur, "Elon")).Scan(context.Background())

		if report.Newly != 1 {
			t.Fatalf("expected one container, got %d", report.Newly)
		}
		if p := report.Pass(PassText); p.Applied != 1 {
			t.Errorf("expected the text pass to apply, got %+v", p)
		}
	})

	t.Run("substring of a longer word is ignored", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Check your MAIL</p>`)
		if n := newEngine(doc, enabled(settings.ModeHide, "AI")).Rescan(context.Background()); n != 0 {
			t.Errorf("expected no redaction, got %d", n)
		}
	})

	t.Run("hidden and script text is ignored", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p hidden>Elon</p><div style="display: none"><p>Elon</p></div><script>var x = "Elon"</script>`)
		if n := newEngine(doc, enabled(settings.ModeHide, "Elon")).Rescan(context.Background()); n != 0 {
			t.Errorf("expected no redaction, got %d", n)
		}
	})

	t.Run("match directly in body is left alone", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `Elon`)
		report := newEngine(doc, enabled(settings.ModeHide, "Elon")).Scan(context.Background())
		if report.Active != 0 || doc.Body() == nil || redact.Marked(doc.Body()) {
			t.Error("expected the page shell to stay unmarked")
		}
	})

	t.Run("pixelate adds an overlay", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<article id="a"><img src="x.png"><h2>Elon</h2></article>`)
		newEngine(doc, enabled(settings.ModePixelate, "Elon")).Scan(context.Background())

		a := doc.ElementByID("a")
		if mode, _ := redact.MarkOf(a); mode != settings.ModePixelate {
			t.Fatalf("expected pixelate mark, got %q", mode)
		}
		overlay := dom.FindFirst(a, 0, func(n *html.Node) bool { return dom.HasClass(n, redact.ClassOverlay) })
		if overlay == nil {
			t.Error("expected overlay inside the article")
		}
	})

	t.Run("replace rewrites words and clear restores them", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<article id="a"><img src="x.png"><h2 id="h">Elon speaks</h2></article>`)
		e := newEngine(doc, enabled(settings.ModeReplace, "Elon"))
		e.Scan(context.Background())

		h := doc.ElementByID("h")
		if got := dom.TextContent(h, 0); got != redact.Placeholder+" speaks" {
			t.Fatalf("expected replaced heading, got %q", got)
		}
		if n := e.Clear(); n != 1 {
			t.Errorf("expected one cleared container, got %d", n)
		}
		if got := dom.TextContent(h, 0); got != "Elon speaks" {
			t.Errorf("expected restored heading, got %q", got)
		}
	})

	t.Run("cancelled context runs no pass", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		doc := parse(t, `<p>Elon</p>`)
		report := newEngine(doc, enabled(settings.ModeHide, "Elon")).Scan(ctx)
		if !report.TimedOut || len(report.PerformedPasses) != 0 || report.Active != 0 {
			t.Errorf("expected an interrupted scan, got %+v", report)
		}
	})

	t.Run("re2 engine matches the same words", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p id="a">New AI-powered tools</p><p id="b">Check your MAIL</p>`)
		e := newEngine(doc, enabled(settings.ModeBlur, "AI"), WithRegexpEngine(matcher.EngineRE2))
		e.Scan(context.Background())

		got := marks(doc)
		if _, ok := got["a"]; !ok || len(got) != 1 {
			t.Errorf("expected only a marked, got %v", got)
		}
		if e.Matcher().Strategy() != matcher.StrategyBoundary {
			t.Errorf("expected boundary strategy, got %s", e.Matcher().Strategy())
		}
	})
}

// TestScanIdempotent tests that an unchanged page gains no marks.
func TestScanIdempotent(t *testing.T) {
	t.Parallel()

	for _, mode := range settings.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			doc := parse(t, cardGrid(12, map[int]string{2: "Elon one", 9: "Elon two"})+`<p>Elon again</p>`)
			e := newEngine(doc, enabled(mode, "Elon"))

			first := e.Scan(context.Background())
			second := e.Scan(context.Background())

			if first.Newly == 0 {
				t.Fatal("expected the first scan to mark containers")
			}
			if second.Newly != 0 {
				t.Errorf("expected no new marks on the second scan, got %d", second.Newly)
			}
			if first.Active != second.Active {
				t.Errorf("expected stable active count, got %d then %d", first.Active, second.Active)
			}
		})
	}
}

// TestScanSkips tests the short-circuit paths.
func TestScanSkips(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Elon</p>`)
		s := enabled(settings.ModeHide, "Elon")
		s.Enabled = false
		report := newEngine(doc, s).Scan(context.Background())

		if report.Skipped != model.SkipDisabled || report.Active != 0 {
			t.Errorf("expected disabled skip, got %+v", report)
		}
	})

	t.Run("no terms", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Elon</p>`)
		e := newEngine(doc, enabled(settings.ModeHide))
		if report := e.Scan(context.Background()); report.Skipped != model.SkipNoMatcher {
			t.Errorf("expected no-matcher skip, got %q", report.Skipped)
		}
		if e.Matcher() != nil {
			t.Error("expected absent matcher")
		}
	})

	t.Run("whitelisted host clears earlier marks", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Elon</p>`)
		s := enabled(settings.ModeBlur, "Elon")
		s.Whitelist = []string{"example.com"}
		e := newEngine(doc, s)

		// The page starts on another host and navigates onto the whitelist.
		if err := doc.SetURL("https://other.test/"); err != nil {
			t.Fatalf("failed to set url: %v", err)
		}
		if n := e.Rescan(context.Background()); n != 1 {
			t.Fatalf("expected one container before navigation, got %d", n)
		}
		if err := doc.SetURL("https://news.example.com/next"); err != nil {
			t.Fatalf("failed to set url: %v", err)
		}

		report := e.Scan(context.Background())
		if report.Skipped != model.SkipWhitelisted || report.Cleared != 1 {
			t.Errorf("expected whitelisted skip clearing one mark, got %+v", report)
		}
		if e.Rescan(context.Background()) != 0 || e.Active() != 0 {
			t.Error("expected no active marks")
		}
	})
}

// TestUpdateSettings tests settings replacement.
func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	t.Run("mode switch applies one mode", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, cardGrid(10, map[int]string{1: "Elon", 5: "Elon"})+`<p id="p">Elon</p>`)
		e := newEngine(doc, enabled(settings.ModeHide, "Elon"))
		e.Scan(context.Background())

		if !e.UpdateSettings(enabled(settings.ModeBlur, "Elon")) {
			t.Fatal("expected a change")
		}
		report := e.Scan(context.Background())

		got := marks(doc)
		if len(got) == 0 || report.Active != len(got) {
			t.Fatalf("expected marks after rescan, got %v", got)
		}
		for id, mode := range got {
			if mode != settings.ModeBlur {
				t.Errorf("%s: expected blur, got %s", id, mode)
			}
		}
	})

	t.Run("identical settings change nothing", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Elon</p>`)
		s := enabled(settings.ModeHide, "Elon")
		e := newEngine(doc, s)
		e.Scan(context.Background())

		if e.UpdateSettings(s) {
			t.Error("expected no change")
		}
		if e.Active() != 1 {
			t.Error("expected marks to survive")
		}
	})

	t.Run("disabling removes marks on the next scan", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>Elon</p>`)
		e := newEngine(doc, enabled(settings.ModeHide, "Elon"))
		e.Scan(context.Background())

		s := e.Settings()
		s.Enabled = false
		e.UpdateSettings(s)

		if e.Active() != 0 {
			t.Error("expected marks to be cleared")
		}
		if report := e.Scan(context.Background()); report.Skipped != model.SkipDisabled {
			t.Errorf("expected disabled skip, got %q", report.Skipped)
		}
	})

	t.Run("settings are normalized", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<p>x</p>`)
		e := newEngine(doc, settings.Settings{Enabled: true, Mode: "sparkle", Terms: []string{" Elon ", "elon"}})

		got := e.Settings()
		if got.Mode != settings.ModeHide || len(got.Terms) != 1 || got.PixelCellSize != settings.DefaultPixelCellSize {
			t.Errorf("unexpected normalized settings %+v", got)
		}
	})
}

// TestScanLargeGrid tests a grid where every card matches.
func TestScanLargeGrid(t *testing.T) {
	t.Parallel()

	const n = 1000
	titles := make(map[int]string, n)
	for i := 0; i < n; i++ {
		titles[i] = fmt.Sprintf("Elon story %d", i)
	}
	for _, mode := range []settings.Mode{settings.ModeHide, settings.ModePixelate} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			doc := parse(t, cardGrid(n, titles))
			report := newEngine(doc, enabled(mode, "Elon")).Scan(context.Background())
			if report.Newly != n || report.Active != n {
				t.Errorf("expected %d marked cards, got newly=%d active=%d", n, report.Newly, report.Active)
			}
		})
	}
}

// BenchmarkScanEveryCardMatches scans a large grid in which every card
// mentions a term.
func BenchmarkScanEveryCardMatches(b *testing.B) {
	const n = 2000
	titles := make(map[int]string, n)
	for i := 0; i < n; i++ {
		titles[i] = fmt.Sprintf("Elon story %d", i)
	}
	page := "<!DOCTYPE html><html><head></head><body>" + cardGrid(n, titles) + "</body></html>"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for b.Loop() {
		doc, err := dom.ParseString(page, "https://news.example.com/world")
		if err != nil {
			b.Fatal(err)
		}
		New(doc, enabled(settings.ModeHide, "Elon"), WithLogger(logger)).Scan(context.Background())
	}
}
