package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Engine selects the regular expression implementation.
type Engine int

const (
	// EngineBacktracking is a .NET-compatible backtracking engine with
	// lookaround support.
	EngineBacktracking Engine = iota
	// EngineRE2 is the standard library engine. It has no lookbehind.
	EngineRE2
)

// String returns the configuration name of the engine.
func (e Engine) String() string {
	switch e {
	case EngineBacktracking:
		return "backtracking"
	case EngineRE2:
		return "re2"
	default:
		return "unknown"
	}
}

// ParseEngine parses a configuration name.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "backtracking", "regexp2":
		return EngineBacktracking, nil
	case "re2", "regexp":
		return EngineRE2, nil
	default:
		return 0, fmt.Errorf("unknown regexp engine %q", s)
	}
}

// Strategy is how whole-word boundaries are expressed.
type Strategy int

const (
	// StrategyNone is reported by the absent matcher.
	StrategyNone Strategy = iota
	// StrategyLookaround uses negative lookbehind and lookahead.
	StrategyLookaround
	// StrategyBoundary consumes the trailing boundary character and checks
	// the leading one outside the expression.
	StrategyBoundary
)

// String returns a short name for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyLookaround:
		return "lookaround"
	case StrategyBoundary:
		return "boundary"
	default:
		return "none"
	}
}

// lookbehindProbe is a minimal pattern that only compiles with lookbehind.
const lookbehindProbe = `(?<![\p{L}])a`

// SupportsLookbehind reports whether engine accepts lookbehind assertions.
func SupportsLookbehind(e Engine) bool {
	switch e {
	case EngineBacktracking:
		_, err := regexp2.Compile(lookbehindProbe, regexp2.None)
		return err == nil
	case EngineRE2:
		_, err := regexp.Compile(lookbehindProbe)
		return err == nil
	default:
		return false
	}
}

type lookaroundPattern struct {
	re *regexp2.Regexp
}

func compileLookaround(core string, timeout time.Duration) (*lookaroundPattern, error) {
	src := `(?<!` + wordClass + `)(?:` + core + `)(?!` + wordClass + `)`
	re, err := regexp2.Compile(src, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = timeout
	return &lookaroundPattern{re: re}, nil
}

// MatchString implements Pattern. A timed out match counts as no match.
func (p *lookaroundPattern) MatchString(s string) bool {
	ok, err := p.re.MatchString(s)
	return err == nil && ok
}

// Replace implements Pattern. Match offsets are rune indices.
func (p *lookaroundPattern) Replace(s, placeholder string) (string, int) {
	runes := []rune(s)
	m, err := p.re.FindRunesMatch(runes)
	if err != nil || m == nil {
		return s, 0
	}
	var b strings.Builder
	last, n := 0, 0
	for m != nil {
		b.WriteString(string(runes[last:m.Index]))
		b.WriteString(placeholder)
		last = m.Index + m.Length
		n++
		m, err = p.re.FindNextMatch(m)
		if err != nil {
			break
		}
	}
	b.WriteString(string(runes[last:]))
	return b.String(), n
}

func (p *lookaroundPattern) String() string {
	return p.re.String()
}

type boundaryPattern struct {
	re *regexp.Regexp
}

func compileBoundary(core string) (*boundaryPattern, error) {
	src := `(?i)(?:` + core + `)(` + `[^\p{L}\p{N}_]` + `|$)`
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	return &boundaryPattern{re: re}, nil
}

// find returns the byte span of the next whole-word term at or after from.
// end excludes the trailing boundary character.
func (p *boundaryPattern) find(s string, from int) (start, end int, ok bool) {
	for from <= len(s) {
		loc := p.re.FindStringSubmatchIndex(s[from:])
		if loc == nil {
			return 0, 0, false
		}
		start = from + loc[0]
		end = from + loc[2]
		if leadingBoundary(s, start) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		if size == 0 {
			size = 1
		}
		from = start + size
	}
	return 0, 0, false
}

// MatchString implements Pattern.
func (p *boundaryPattern) MatchString(s string) bool {
	_, _, ok := p.find(s, 0)
	return ok
}

// Replace implements Pattern. The trailing boundary character is kept.
func (p *boundaryPattern) Replace(s, placeholder string) (string, int) {
	var b strings.Builder
	last, n := 0, 0
	for from := 0; ; {
		start, end, ok := p.find(s, from)
		if !ok {
			break
		}
		b.WriteString(s[last:start])
		b.WriteString(placeholder)
		last, from = end, end
		n++
	}
	if n == 0 {
		return s, 0
	}
	b.WriteString(s[last:])
	return b.String(), n
}

func (p *boundaryPattern) String() string {
	return p.re.String()
}

// leadingBoundary reports whether the rune before byte offset i is not a
// word character.
func leadingBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
