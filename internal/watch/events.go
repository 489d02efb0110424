package watch

import (
	"github.com/nao1215/clarityfilter/internal/dom"
)

// Scan triggers recorded in reports.
const (
	TriggerInitial  = "initial"
	TriggerMutation = "mutation"
	TriggerSettings = "settings"
	TriggerNavigate = "navigate"
	TriggerRescan   = "rescan"
)

// event is handled on the loop goroutine.
type event interface {
	event()
}

// mutationEvent is one record from the document observer.
type mutationEvent struct {
	record dom.MutationRecord
}

// rescanEvent asks for an immediate scan.
type rescanEvent struct {
	reply chan int
}

// clearEvent asks for every redaction to be removed.
type clearEvent struct {
	reply chan int
}

// mutateEvent runs fn against the document on the loop.
type mutateEvent struct {
	fn    func(*dom.Document) error
	reply chan error
}

// navigateEvent changes the page URL.
type navigateEvent struct {
	url   string
	reply chan error
}

func (mutationEvent) event() {}
func (rescanEvent) event()   {}
func (clearEvent) event()    {}
func (mutateEvent) event()   {}
func (navigateEvent) event() {}

// schedules reports whether a mutation record can reveal new content.
// Only added nodes count, and nodes the engine inserted do not.
func schedules(rec dom.MutationRecord) bool {
	if rec.Type != dom.MutationChildList {
		return false
	}
	for _, n := range rec.Added {
		if !dom.Owned(n) {
			return true
		}
	}
	return false
}
