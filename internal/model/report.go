package model

import (
	"time"

	"github.com/nao1215/clarityfilter/internal/settings"
)

// SkipReason tells why a scan did not look at the page.
type SkipReason string

const (
	// SkipNone means the scan ran.
	SkipNone SkipReason = ""
	// SkipDisabled means filtering is switched off.
	SkipDisabled SkipReason = "disabled"
	// SkipWhitelisted means the page host is whitelisted.
	SkipWhitelisted SkipReason = "whitelisted"
	// SkipNoMatcher means the term list yields no usable pattern.
	SkipNoMatcher SkipReason = "no-matcher"
	// SkipUnchanged means the page body matches the last recorded fetch.
	SkipUnchanged SkipReason = "unchanged"
)

// PassResult is what one candidate pass did.
type PassResult struct {
	// Name is the pass name (cards, items, text).
	Name string `json:"name"`

	// Candidates is the number of elements enumerated.
	Candidates int `json:"candidates"`

	// Matched is the number of candidates holding a matching text node.
	Matched int `json:"matched"`

	// Applied is the number of containers newly marked by this pass.
	Applied int `json:"applied"`
}

// ScanReport is the outcome of one scan of one document.
type ScanReport struct {
	// URL is the page URL at scan time.
	URL string `json:"url"`

	// Host is the page hostname, empty when unknown.
	Host string `json:"host,omitempty"`

	// Trigger names what started the scan (initial, mutation, settings,
	// navigate, rescan). Empty for direct calls.
	Trigger string `json:"trigger,omitempty"`

	// Mode is the concealment mode in effect.
	Mode settings.Mode `json:"mode"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Duration is how long the scan took.
	Duration time.Duration `json:"duration"`

	// Skipped is set when the scan short-circuited.
	Skipped SkipReason `json:"skipped,omitempty"`

	// Cleared is the number of marks removed by a short-circuited scan.
	Cleared int `json:"cleared,omitempty"`

	// Passes holds per-pass counters in execution order.
	Passes []PassResult `json:"passes,omitempty"`

	// PerformedPasses lists the passes that completed.
	PerformedPasses []string `json:"performed_passes,omitempty"`

	// Newly is the number of containers newly acted on in this scan.
	Newly int `json:"newly"`

	// Active is the number of containers under redaction after the scan.
	Active int `json:"active"`

	// TimedOut is set when the context ended between passes.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the first pass error, if any.
	Error error `json:"-"`

	// ErrorMessage is the serializable form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// NewScanReport creates a report for the page at url.
func NewScanReport(url string) *ScanReport {
	return &ScanReport{
		URL:         url,
		DateScanned: time.Now(),
	}
}

// Pass returns the counters of the named pass, adding them when missing.
func (r *ScanReport) Pass(name string) *PassResult {
	for i := range r.Passes {
		if r.Passes[i].Name == name {
			return &r.Passes[i]
		}
	}
	r.Passes = append(r.Passes, PassResult{Name: name})
	return &r.Passes[len(r.Passes)-1]
}

// SetError records err unless an error is already recorded.
func (r *ScanReport) SetError(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Filtered reports whether the scan ran and acted on anything.
func (r *ScanReport) Filtered() bool {
	return r.Skipped == SkipNone && r.Active > 0
}
