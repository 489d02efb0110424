package scope

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Host reduces a URL or bare host pattern to a lowercase ASCII hostname.
//
// The scheme is optional, and path, port and a trailing dot are dropped.
// A leading "*." wildcard is the same as the bare suffix. Internationalized
// names are converted to their punycode form.
func Host(value string) (string, error) {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "*.")
	if v == "" {
		return "", ErrEmptyHost
	}
	if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidHost, value, err)
	}
	h := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if h == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyHost, value)
	}
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		// Lookup rejects names such as "my_host" that browsers still resolve.
		if isASCII(h) {
			return h, nil
		}
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidHost, value, err)
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Match reports whether host equals pattern or is a strict subdomain of it.
// Both arguments must already be normalized with Host.
func Match(host, pattern string) bool {
	if host == "" || pattern == "" {
		return false
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// Filter is a normalized whitelist.
type Filter struct {
	patterns []string
}

// NewFilter normalizes list. Entries that are not hosts are ignored.
func NewFilter(list []string) *Filter {
	f := &Filter{patterns: make([]string, 0, len(list))}
	for _, entry := range list {
		h, err := Host(entry)
		if err != nil {
			continue
		}
		f.patterns = append(f.patterns, h)
	}
	return f
}

// Len returns the number of usable patterns.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}

// Whitelisted reports whether the page at pageURL is covered by a pattern.
// A page without a host is never whitelisted.
func (f *Filter) Whitelisted(pageURL string) bool {
	if f.Len() == 0 {
		return false
	}
	host, err := Host(pageURL)
	if err != nil {
		return false
	}
	for _, p := range f.patterns {
		if Match(host, p) {
			return true
		}
	}
	return false
}

// Whitelisted is a shorthand for NewFilter(list).Whitelisted(pageURL).
func Whitelisted(pageURL string, list []string) bool {
	return NewFilter(list).Whitelisted(pageURL)
}
