package matcher

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Limits that keep the assembled pattern from growing without bound.
const (
	// MaxTerms is the largest term list that compiles.
	MaxTerms = 1000

	// MaxTermLength is the longest term kept, in runes. Longer terms are
	// dropped, not truncated.
	MaxTermLength = 50

	// MaxPatternLength is the largest escaped alternation, in bytes.
	MaxPatternLength = 5000

	// DefaultMatchTimeout bounds a single backtracking match.
	DefaultMatchTimeout = 100 * time.Millisecond
)

// wordClass is the set of characters a term must not touch.
const wordClass = `[\p{L}\p{N}_]`

// Pattern is a compiled term pattern.
type Pattern interface {
	// MatchString reports whether s contains a whole-word term.
	MatchString(s string) bool

	// Replace substitutes every term occurrence in s with placeholder and
	// returns the result together with the number of substitutions.
	Replace(s, placeholder string) (string, int)

	// String returns the pattern source.
	String() string
}

// Matcher is an immutable compiled term list. The nil *Matcher is the
// absent matcher and matches nothing.
type Matcher struct {
	terms    []string
	pattern  Pattern
	strategy Strategy
	engine   Engine
}

// Option configures Compile.
type Option func(*options)

type options struct {
	engine  Engine
	timeout time.Duration
}

// WithEngine selects the regular expression engine.
func WithEngine(e Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithMatchTimeout bounds a single backtracking match. It has no effect on
// the RE2 engine, which runs in linear time.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Compile builds a Matcher from raw terms. On failure it returns a nil
// Matcher and one of the package errors; it never panics.
func Compile(terms []string, opts ...Option) (*Matcher, error) {
	o := options{engine: EngineBacktracking, timeout: DefaultMatchTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	if len(terms) > MaxTerms {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyTerms, len(terms), MaxTerms)
	}
	cleaned := Normalize(terms)
	if len(cleaned) == 0 {
		return nil, ErrNoTerms
	}

	escaped := make([]string, len(cleaned))
	for i, t := range cleaned {
		escaped[i] = regexp.QuoteMeta(t)
	}
	core := strings.Join(escaped, "|")
	if len(core) > MaxPatternLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrPatternTooLong, len(core))
	}

	var (
		p        Pattern
		err      error
		strategy Strategy
	)
	if SupportsLookbehind(o.engine) {
		strategy = StrategyLookaround
		p, err = compileLookaround(core, o.timeout)
	} else {
		strategy = StrategyBoundary
		p, err = compileBoundary(core)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	return &Matcher{
		terms:    cleaned,
		pattern:  p,
		strategy: strategy,
		engine:   o.engine,
	}, nil
}

// Normalize converts terms to NFC, trims them, drops empty and overlong
// ones and removes duplicates that differ only in case (see FoldKey). The
// result is ordered longest first so that longer alternatives win over
// their prefixes.
func Normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, raw := range terms {
		t := strings.TrimSpace(norm.NFC.String(raw))
		if t == "" || utf8.RuneCountInString(t) > MaxTermLength {
			continue
		}
		key := FoldKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}

// FoldKey returns the key under which two terms count as the same term.
// Runes are compared by simple case folding, the equivalence both engines
// apply when ignoring case, so "Straße" and "Strasse" stay distinct.
func FoldKey(term string) string {
	return strings.Map(foldRune, norm.NFC.String(term))
}

// foldRune maps r to the smallest rune of its simple folding orbit.
func foldRune(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}

// Match reports whether text contains any term as a whole word.
func (m *Matcher) Match(text string) bool {
	if m == nil || text == "" {
		return false
	}
	return m.pattern.MatchString(norm.NFC.String(text))
}

// Replace substitutes every term occurrence in text with placeholder.
// Text without matches is returned untouched.
func (m *Matcher) Replace(text, placeholder string) (string, int) {
	if m == nil || text == "" {
		return text, 0
	}
	out, n := m.pattern.Replace(norm.NFC.String(text), placeholder)
	if n == 0 {
		return text, 0
	}
	return out, n
}

// Terms returns the normalized terms, longest first.
func (m *Matcher) Terms() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// Strategy returns the compilation strategy in use.
func (m *Matcher) Strategy() Strategy {
	if m == nil {
		return StrategyNone
	}
	return m.strategy
}

// String returns the pattern source, or "" for the absent matcher.
func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.pattern.String()
}
