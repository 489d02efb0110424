package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Backup file constants.
const (
	BackupVersion   = "1.0"
	BackupExtension = "ClarityFilter"

	// MaxBackupSize is the largest backup file accepted.
	MaxBackupSize = 1 << 20
	// MaxBackupNames is the largest term list accepted in a backup.
	MaxBackupNames = 10000
)

// backupName is the character set allowed in imported terms.
var backupName = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?()]+$`)

// Backup is the portable export format. Authorization data is never
// exported.
type Backup struct {
	Version    string     `json:"version"`
	ExportDate time.Time  `json:"exportDate"`
	Extension  string     `json:"extension"`
	Data       BackupData `json:"data"`
}

// BackupData is the payload of a Backup.
type BackupData struct {
	Names     []string `json:"names"`
	Whitelist []string `json:"whitelist,omitempty"`
	Mode      Mode     `json:"mode,omitempty"`
	PixelCell int      `json:"pixelCell,omitempty"`
}

// ImportResult reports what an import added.
type ImportResult struct {
	AddedTerms int
	AddedSites int
}

// Export writes s as an indented JSON backup.
func Export(w io.Writer, s Settings, now time.Time) error {
	s = Normalize(s)
	b := Backup{
		Version:    BackupVersion,
		ExportDate: now.UTC(),
		Extension:  BackupExtension,
		Data: BackupData{
			Names:     s.Terms,
			Whitelist: s.Whitelist,
			Mode:      s.Mode,
			PixelCell: s.PixelCellSize,
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import reads a backup and merges it into current. Imported terms and
// whitelist entries are added; mode and pixel cell size stay as they are.
func Import(r io.Reader, current Settings) (Settings, ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBackupSize+1))
	if err != nil {
		return current, ImportResult{}, fmt.Errorf("failed to read backup: %w", err)
	}
	if len(data) > MaxBackupSize {
		return current, ImportResult{}, ErrBackupTooLarge
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return current, ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if err := validateBackup(b.Data); err != nil {
		return current, ImportResult{}, err
	}

	names := sanitizeNames(b.Data.Names)
	sites := sanitizeWhitelist(b.Data.Whitelist)
	if len(names) == 0 && len(sites) == 0 {
		return current, ImportResult{}, ErrEmptyBackup
	}

	base := Normalize(current)
	merged := base.Clone()
	merged.Terms = append(merged.Terms, names...)
	merged.Whitelist = append(merged.Whitelist, sites...)
	merged = Normalize(merged)

	return merged, ImportResult{
		AddedTerms: len(merged.Terms) - len(base.Terms),
		AddedSites: len(merged.Whitelist) - len(base.Whitelist),
	}, nil
}

func validateBackup(d BackupData) error {
	if d.Names == nil {
		return fmt.Errorf("%w: missing names", ErrInvalidBackup)
	}
	if len(d.Names) > MaxBackupNames {
		return fmt.Errorf("%w: %d names", ErrInvalidBackup, len(d.Names))
	}
	var errs []error
	for _, name := range d.Names {
		n := utf8.RuneCountInString(name)
		if n < 1 || n > MaxTermRunes || !backupName.MatchString(name) {
			errs = append(errs, fmt.Errorf("name %q", name))
		}
	}
	if len(d.Whitelist) > MaxWhitelist {
		errs = append(errs, fmt.Errorf("%d whitelist entries", len(d.Whitelist)))
	}
	for _, entry := range d.Whitelist {
		if utf8.RuneCountInString(entry) > MaxWhitelistRunes || !parseableHost(entry) {
			errs = append(errs, fmt.Errorf("whitelist entry %q", entry))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBackup, errors.Join(errs...))
	}
	return nil
}

func parseableHost(entry string) bool {
	if _, err := url.Parse(entry); err == nil {
		return true
	}
	_, err := url.Parse("https://" + entry)
	return err == nil
}

func sanitizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(n))
		if n == "" || utf8.RuneCountInString(n) > MaxTermRunes {
			continue
		}
		out = append(out, n)
		if len(out) == MaxBackupNames {
			break
		}
	}
	return out
}

func sanitizeWhitelist(list []string) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		w = strings.TrimSpace(w)
		if w == "" || utf8.RuneCountInString(w) > MaxWhitelistRunes {
			continue
		}
		out = append(out, w)
		if len(out) == MaxWhitelist {
			break
		}
	}
	return out
}
