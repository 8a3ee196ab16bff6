package pipeline

import (
	"sync"
	"time"
)

// Trigger describes one coalesced debounce firing.
type Trigger struct {
	NotifyCount int
	FirstNotify time.Time
	LastNotify  time.Time
	Reason      string // "quiet" or "max_delay"
}

// Debouncer coalesces bursts of edit notifications into a single pipeline
// invocation, fired one quiet window after the last notification.
//
// An optional max delay bounds how long a steady stream of edits can postpone
// the firing; zero disables it, preserving pure quiet-window semantics.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	fire     func(Trigger)

	mu          sync.Mutex
	quietTimer  *time.Timer
	maxTimer    *time.Timer
	pending     bool
	notifyCount int
	firstNotify time.Time
	lastNotify  time.Time
}

// NewDebouncer creates a debouncer. fire is invoked outside the internal
// lock, on the timer goroutine.
func NewDebouncer(quiet, maxDelay time.Duration, fire func(Trigger)) *Debouncer {
	return &Debouncer{quiet: quiet, maxDelay: maxDelay, fire: fire}
}

// Notify records an edit and re-arms the quiet timer. A burst of N calls
// spaced less than the quiet window apart yields exactly one firing, one
// quiet window after the last call.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if !d.pending {
		d.pending = true
		d.firstNotify = now
		d.notifyCount = 0
		if d.maxDelay > 0 {
			d.maxTimer = time.AfterFunc(d.maxDelay, func() { d.emit("max_delay") })
		}
	}
	d.notifyCount++
	d.lastNotify = now

	if d.quietTimer != nil {
		d.quietTimer.Stop()
	}
	d.quietTimer = time.AfterFunc(d.quiet, func() { d.emit("quiet") })
}

// Cancel clears any pending invocation with no side effects. Used on
// document close and shutdown.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Pending reports whether a firing is currently scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) emit(reason string) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	tr := Trigger{
		NotifyCount: d.notifyCount,
		FirstNotify: d.firstNotify,
		LastNotify:  d.lastNotify,
		Reason:      reason,
	}
	d.reset()
	d.mu.Unlock()

	d.fire(tr)
}

// reset must be called with the lock held.
func (d *Debouncer) reset() {
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
	if d.maxTimer != nil {
		d.maxTimer.Stop()
		d.maxTimer = nil
	}
	d.pending = false
	d.notifyCount = 0
}
