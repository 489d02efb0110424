package matcher

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

var engines = []Engine{EngineBacktracking, EngineRE2}

func mustCompile(t *testing.T, terms []string, opts ...Option) *Matcher {
	t.Helper()
	m, err := Compile(terms, opts...)
	if err != nil {
		t.Fatalf("failed to compile %v: %v", terms, err)
	}
	return m
}

// TestCompile tests term normalization and compile limits.
func TestCompile(t *testing.T) {
	t.Parallel()

	t.Run("empty list is ErrNoTerms", func(t *testing.T) {
		t.Parallel()

		m, err := Compile([]string{" ", "", "\t"})
		if !errors.Is(err, ErrNoTerms) {
			t.Errorf("expected ErrNoTerms, got %v", err)
		}
		if m != nil {
			t.Error("expected nil matcher")
		}
	})

	t.Run("too many terms", func(t *testing.T) {
		t.Parallel()

		terms := make([]string, MaxTerms+1)
		for i := range terms {
			terms[i] = fmt.Sprintf("t%d", i)
		}
		if _, err := Compile(terms); !errors.Is(err, ErrTooManyTerms) {
			t.Errorf("expected ErrTooManyTerms, got %v", err)
		}
	})

	t.Run("overlong alternation", func(t *testing.T) {
		t.Parallel()

		terms := make([]string, 200)
		for i := range terms {
			terms[i] = fmt.Sprintf("%s%03d", strings.Repeat("x", 40), i)
		}
		if _, err := Compile(terms); !errors.Is(err, ErrPatternTooLong) {
			t.Errorf("expected ErrPatternTooLong, got %v", err)
		}
	})

	t.Run("overlong terms are dropped", func(t *testing.T) {
		t.Parallel()

		m := mustCompile(t, []string{strings.Repeat("a", MaxTermLength+1), "ok"})
		if got := m.Terms(); len(got) != 1 || got[0] != "ok" {
			t.Errorf("expected only the short term, got %v", got)
		}
	})

	t.Run("case-insensitive duplicates collapse", func(t *testing.T) {
		t.Parallel()

		got := Normalize([]string{"Alice", "alice", " ALICE ", "Bob"})
		if len(got) != 2 {
			t.Errorf("expected 2 terms, got %v", got)
		}
	})

	t.Run("sharp s and ss stay distinct", func(t *testing.T) {
		t.Parallel()

		got := Normalize([]string{"Strasse", "Straße", "STRASSE"})
		if len(got) != 2 {
			t.Fatalf("expected Strasse and Straße, got %v", got)
		}
		for _, engine := range engines {
			m := mustCompile(t, []string{"Strasse", "Straße"}, WithEngine(engine))
			if !m.Match("Die Straße ist lang") {
				t.Errorf("%s: expected a match on Straße", engine)
			}
			if !m.Match("Die Strasse ist lang") {
				t.Errorf("%s: expected a match on Strasse", engine)
			}
		}
	})

	t.Run("longest term first", func(t *testing.T) {
		t.Parallel()

		got := Normalize([]string{"New", "New York"})
		if got[0] != "New York" {
			t.Errorf("expected longest first, got %v", got)
		}
	})

	t.Run("strategy follows engine", func(t *testing.T) {
		t.Parallel()

		if s := mustCompile(t, []string{"x"}).Strategy(); s != StrategyLookaround {
			t.Errorf("expected lookaround by default, got %s", s)
		}
		if s := mustCompile(t, []string{"x"}, WithEngine(EngineRE2)).Strategy(); s != StrategyBoundary {
			t.Errorf("expected boundary for re2, got %s", s)
		}
	})
}

// TestMatch tests whole-word matching under both engines.
func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		terms []string
		text  string
		want  bool
	}{
		{name: "hyphen is a boundary", terms: []string{"AI"}, text: "New AI-powered tools", want: true},
		{name: "inside a word is not a match", terms: []string{"AI"}, text: "Check your MAIL today", want: false},
		{name: "case-insensitive", terms: []string{"elon"}, text: "ELON said", want: true},
		{name: "start of text", terms: []string{"foo"}, text: "foo bar", want: true},
		{name: "end of text", terms: []string{"foo"}, text: "bar foo", want: true},
		{name: "underscore is a word character", terms: []string{"foo"}, text: "foo_bar", want: false},
		{name: "digit is a word character", terms: []string{"foo"}, text: "foo2", want: false},
		{name: "non-Latin letters are word characters", terms: []string{"ai"}, text: "ñai", want: false},
		{name: "punctuation is a boundary", terms: []string{"foo"}, text: "(foo)", want: true},
		{name: "regex metacharacters are literal", terms: []string{"c++"}, text: "learn c++ now", want: true},
		{name: "dot is literal", terms: []string{"a.b"}, text: "axb", want: false},
		{name: "multi-word term", terms: []string{"New York"}, text: "in New York today", want: true},
		{name: "later occurrence after rejected one", terms: []string{"ai"}, text: "mail ai", want: true},
		{name: "empty text", terms: []string{"foo"}, text: "", want: false},
	}

	for _, engine := range engines {
		for _, tt := range tests {
			t.Run(engine.String()+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				m := mustCompile(t, tt.terms, WithEngine(engine))
				if got := m.Match(tt.text); got != tt.want {
					t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
				}
			})
		}
	}
}

// TestReplace tests placeholder substitution under both engines.
func TestReplace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		terms []string
		text  string
		want  string
		count int
	}{
		{name: "single", terms: []string{"Alice"}, text: "Hi Alice!", want: "Hi ████!", count: 1},
		{name: "keeps trailing boundary", terms: []string{"a"}, text: "a b a", want: "████ b ████", count: 2},
		{name: "adjacent terms", terms: []string{"foo", "bar"}, text: "foo bar", want: "████ ████", count: 2},
		{name: "longest wins", terms: []string{"New", "New York"}, text: "New York", want: "████", count: 1},
		{name: "multibyte text", terms: []string{"café"}, text: "un café noir", want: "un ████ noir", count: 1},
		{name: "no match is untouched", terms: []string{"zzz"}, text: "hello", want: "hello", count: 0},
	}

	for _, engine := range engines {
		for _, tt := range tests {
			t.Run(engine.String()+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				m := mustCompile(t, tt.terms, WithEngine(engine))
				got, n := m.Replace(tt.text, "████")
				if got != tt.want || n != tt.count {
					t.Errorf("Replace(%q) = %q, %d; want %q, %d", tt.text, got, n, tt.want, tt.count)
				}
			})
		}
	}
}

// TestAbsentMatcher tests the nil matcher.
func TestAbsentMatcher(t *testing.T) {
	t.Parallel()

	var m *Matcher
	if m.Match("anything") {
		t.Error("expected absent matcher to match nothing")
	}
	if got, n := m.Replace("anything", "x"); got != "anything" || n != 0 {
		t.Errorf("expected text unchanged, got %q, %d", got, n)
	}
	if m.Strategy() != StrategyNone || m.String() != "" || m.Terms() != nil {
		t.Error("expected zero values from absent matcher")
	}
}

// TestParseEngine tests engine name parsing.
func TestParseEngine(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Engine{"": EngineBacktracking, "RE2": EngineRE2, "backtracking": EngineBacktracking} {
		got, err := ParseEngine(in)
		if err != nil || got != want {
			t.Errorf("ParseEngine(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEngine("pcre"); err == nil {
		t.Error("expected error for unknown engine")
	}
}
