package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/nao1215/clarityfilter/internal/matcher"
)

// maskedKeys are attribute keys whose values are never logged.
var maskedKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,

	// Credentials
	"password": true,
	"passwd":   true,
	"secret":   true,
	"token":    true,
	"pin":      true,
	"passcode": true,

	// Filter terms
	"term":  true,
	"terms": true,
	"names": true,
}

// secretValues match values that are masked under any key.
var secretValues = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Credentials embedded in a proxy or fetch URL
	regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/@\s]+:[^/@\s]+@`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// MaskTerm replaces a filtered term inside a logged string.
const MaskTerm = "***"

// termMask is shared by a handler and every handler derived from it.
type termMask struct {
	m atomic.Pointer[matcher.Matcher]
}

func (t *termMask) apply(s string) string {
	out, _ := t.m.Load().Replace(s, MaskTerm)
	return out
}

// SecureHandler is an slog.Handler that masks credentials and filtered
// terms before records reach the wrapped handler. The terms a user filters
// are what they asked not to see, so they never appear in log output either.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because it works with any slog.Handler, and packages that only receive a
// *slog.Logger get masking without knowing about it.
type SecureHandler struct {
	next  slog.Handler
	terms *termMask
}

// NewSecureHandler wraps next, or the default handler when next is nil.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next, terms: &termMask{}}
}

// SetTerms sets the terms masked in log output. It affects h and every
// handler derived from it with WithAttrs or WithGroup. An empty list
// disables term masking.
func (h *SecureHandler) SetTerms(terms []string) {
	m, err := matcher.Compile(terms)
	if err != nil {
		m = nil
	}
	h.terms.m.Store(m)
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler. The message is term-masked as well.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.terms.apply(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. Attributes are masked once, with the
// terms known at that time.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, h.mask(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(masked), terms: h.terms}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name), terms: h.terms}
}

// mask returns a with its value masked where needed. Groups are walked.
func (h *SecureHandler) mask(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		masked := make([]slog.Attr, 0, len(members))
		for _, m := range members {
			masked = append(masked, h.mask(m))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	key := strings.ToLower(a.Key)
	if maskedKeys[key] || hasSecretKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	var str string
	switch a.Value.Kind() {
	case slog.KindString:
		str = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok {
			return a
		}
		str = err.Error()
	default:
		return a
	}

	if isSecretValue(str) {
		return slog.String(a.Key, MaskValue)
	}
	if masked := h.terms.apply(str); masked != str || a.Value.Kind() == slog.KindAny {
		return slog.String(a.Key, masked)
	}
	return a
}

// secretKeywords mark a key as secret when contained in it. "key" alone
// would catch primary_key and keyboard.
var secretKeywords = []string{"password", "passwd", "secret", "token", "auth", "credential", "passcode"}

func hasSecretKeyword(key string) bool {
	for _, keyword := range secretKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSecretValue(value string) bool {
	for _, pattern := range secretValues {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// SetTerms sets the masked terms on logger when its handler is a
// SecureHandler, and reports whether it was.
func SetTerms(logger *slog.Logger, terms []string) bool {
	h, ok := logger.Handler().(*SecureHandler)
	if !ok {
		return false
	}
	h.SetTerms(terms)
	return true
}

// NewSecureLogger creates a text logger with secure handling.
// verbose selects the Debug level; otherwise only warnings and errors are
// written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a JSON logger with secure handling.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
