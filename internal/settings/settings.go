package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/clarityfilter/internal/matcher"
)

// Mode is how a matched container is concealed.
type Mode string

const (
	// ModeHide removes the container from the layout.
	ModeHide Mode = "hide"
	// ModeBlur blurs the container.
	ModeBlur Mode = "blur"
	// ModePixelate covers the container with a mosaic overlay.
	ModePixelate Mode = "pixelate"
	// ModeReplace replaces matched words with a placeholder.
	ModeReplace Mode = "replace"
)

// Modes returns every mode in display order.
func Modes() []Mode {
	return []Mode{ModeHide, ModeBlur, ModePixelate, ModeReplace}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return slices.Contains(Modes(), m)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Limits applied by Normalize.
const (
	DefaultPixelCellSize = 15
	MinPixelCellSize     = 5
	MaxPixelCellSize     = 50

	// MaxTermRunes is the longest term kept.
	MaxTermRunes = 100
	// MaxTerms is the number of terms kept.
	MaxTerms = 1000
	// MaxWhitelistRunes is the longest whitelist entry kept.
	MaxWhitelistRunes = 200
	// MaxWhitelist is the number of whitelist entries kept.
	MaxWhitelist = 1000
)

// Settings is one snapshot of the user's configuration.
type Settings struct {
	Terms         []string `json:"names"`
	Mode          Mode     `json:"mode"`
	Enabled       bool     `json:"enabled"`
	Whitelist     []string `json:"whitelist"`
	PixelCellSize int      `json:"pixelCell"`
}

// Default returns the settings used when nothing is stored.
func Default() Settings {
	return Settings{
		Terms:         []string{},
		Mode:          ModeHide,
		Enabled:       false,
		Whitelist:     []string{},
		PixelCellSize: DefaultPixelCellSize,
	}
}

// Normalize returns a cleaned copy of s. Terms and whitelist entries are
// trimmed, overlong and duplicate entries are dropped and both lists are
// capped. An unknown mode becomes hide and an out of range pixel cell size
// becomes the default.
func Normalize(s Settings) Settings {
	out := Settings{
		Terms:         cleanList(s.Terms, MaxTermRunes, MaxTerms, false),
		Mode:          s.Mode,
		Enabled:       s.Enabled,
		Whitelist:     cleanList(s.Whitelist, MaxWhitelistRunes, MaxWhitelist, true),
		PixelCellSize: s.PixelCellSize,
	}
	if !out.Mode.Valid() {
		out.Mode = ModeHide
	}
	if out.PixelCellSize < MinPixelCellSize || out.PixelCellSize > MaxPixelCellSize {
		out.PixelCellSize = DefaultPixelCellSize
	}
	return out
}

func cleanList(in []string, maxRunes, maxItems int, lower bool) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" || utf8.RuneCountInString(v) > maxRunes {
			continue
		}
		key := matcher.FoldKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

// Decode parses a stored JSON snapshot. Anything malformed yields Default;
// missing fields take their default values.
func Decode(data []byte) Settings {
	s := Default()
	if len(data) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default()
	}
	return Normalize(s)
}

// Encode serializes a normalized snapshot.
func Encode(s Settings) ([]byte, error) {
	return json.Marshal(Normalize(s))
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.Terms = slices.Clone(s.Terms)
	s.Whitelist = slices.Clone(s.Whitelist)
	return s
}

// Equal reports whether two snapshots hold the same values.
func (s Settings) Equal(o Settings) bool {
	return s.Mode == o.Mode && s.Enabled == o.Enabled && s.PixelCellSize == o.PixelCellSize &&
		slices.Equal(s.Terms, o.Terms) && slices.Equal(s.Whitelist, o.Whitelist)
}

// WithTerm returns a snapshot with term added.
func (s Settings) WithTerm(term string) Settings {
	out := s.Clone()
	out.Terms = append(out.Terms, term)
	return Normalize(out)
}

// WithoutTerm returns a snapshot with term removed, ignoring case.
func (s Settings) WithoutTerm(term string) Settings {
	out := s.Clone()
	key := matcher.FoldKey(strings.TrimSpace(term))
	out.Terms = slices.DeleteFunc(out.Terms, func(t string) bool {
		return matcher.FoldKey(t) == key
	})
	return out
}

// WithWhitelist returns a snapshot with entry added to the whitelist.
func (s Settings) WithWhitelist(entry string) Settings {
	out := s.Clone()
	out.Whitelist = append(out.Whitelist, entry)
	return Normalize(out)
}

// WithoutWhitelist returns a snapshot with entry removed from the whitelist.
func (s Settings) WithoutWhitelist(entry string) Settings {
	out := s.Clone()
	entry = strings.ToLower(strings.TrimSpace(entry))
	out.Whitelist = slices.DeleteFunc(out.Whitelist, func(w string) bool {
		return w == entry
	})
	return out
}

// WithMode returns a snapshot using mode.
func (s Settings) WithMode(mode Mode) Settings {
	out := s.Clone()
	out.Mode = mode
	return Normalize(out)
}

// WithEnabled returns a snapshot with filtering switched on or off.
func (s Settings) WithEnabled(enabled bool) Settings {
	out := s.Clone()
	out.Enabled = enabled
	return out
}

// WithPixelCellSize returns a snapshot using size, or an error when size is
// out of range.
func (s Settings) WithPixelCellSize(size int) (Settings, error) {
	if size < MinPixelCellSize || size > MaxPixelCellSize {
		return s, fmt.Errorf("%w: %d not in %d..%d", ErrInvalidPixelCellSize, size, MinPixelCellSize, MaxPixelCellSize)
	}
	out := s.Clone()
	out.PixelCellSize = size
	return out, nil
}

// Store provides the current settings and reports changes.
type Store interface {
	// Get returns the current snapshot.
	Get(ctx context.Context) (Settings, error)

	// OnChange registers fn to receive every new snapshot and returns a
	// function that unregisters it.
	OnChange(fn func(Settings)) (cancel func())
}
