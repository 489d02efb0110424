package watch

import "errors"

var (
	// ErrStopped is returned by requests posted to a watcher whose loop
	// has exited.
	ErrStopped = errors.New("watcher has stopped")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher is already running")
)
