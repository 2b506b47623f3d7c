package watcher

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of change signals into one. Editors often
// write a file several times in a row (truncate, write, chmod, rename);
// only the last signal of a burst fires, one window after it arrived.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	timer   *time.Timer
	output  chan struct{}
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		output: make(chan struct{}, 1),
	}
}

// Trigger records a change and restarts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	// A pending signal already covers this change.
	select {
	case d.output <- struct{}{}:
	default:
	}
}

// Output returns the channel receiving one value per settled burst.
func (d *Debouncer) Output() <-chan struct{} {
	return d.output
}

// Stop cancels any pending signal and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
