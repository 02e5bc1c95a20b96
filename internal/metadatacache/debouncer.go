package metadatacache

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of Trigger calls into a single fn invocation
// after delay has elapsed with no further triggers.
type debouncer struct {
	delay time.Duration
	fn    func()

	mu     sync.Mutex
	timer  *time.Timer
	cancel bool
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the debounce window.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Cancel stops any pending fire and prevents future triggers from scheduling one.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
