package model

import (
	"sort"
	"time"

	"github.com/nao1215/clarityfilter/internal/settings"
)

// Summary totals several scan reports for human readable output.
type Summary struct {
	// Documents is the number of reports.
	Documents int `json:"documents"`

	// Filtered is the number of documents with at least one active mark.
	Filtered int `json:"filtered"`

	// Skipped counts short-circuited scans per reason.
	Skipped map[SkipReason]int `json:"skipped,omitempty"`

	// Failed is the number of reports carrying an error.
	Failed int `json:"failed"`

	// Containers is the total of active marks.
	Containers int `json:"containers"`

	// ByMode counts active marks per mode.
	ByMode map[settings.Mode]int `json:"by_mode,omitempty"`

	// Duration is the total scan time.
	Duration time.Duration `json:"duration"`
}

// NewSummary totals reports. Nil entries are ignored.
func NewSummary(reports []*ScanReport) *Summary {
	s := &Summary{
		Skipped: make(map[SkipReason]int),
		ByMode:  make(map[settings.Mode]int),
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Documents++
		s.Duration += r.Duration
		if r.Error != nil || r.ErrorMessage != "" {
			s.Failed++
		}
		if r.Skipped != SkipNone {
			s.Skipped[r.Skipped]++
			continue
		}
		if r.Active > 0 {
			s.Filtered++
			s.Containers += r.Active
			s.ByMode[r.Mode] += r.Active
		}
	}
	return s
}

// SkipReasons returns the recorded reasons in a stable order.
func (s *Summary) SkipReasons() []SkipReason {
	out := make([]SkipReason, 0, len(s.Skipped))
	for r := range s.Skipped {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
