package selection

import (
	"sync"
	"time"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// DefaultCloseDelay matches the drawer's close animation.
const DefaultCloseDelay = 300 * time.Millisecond

// State is the drawer lifecycle state.
type State int

const (
	Closed State = iota
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

// Scheduler runs fn after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Drawer tracks which incident is shown in the detail drawer.
// Closing keeps the selection visible until the delay elapses; a Select in
// the meantime cancels the pending clear.
type Drawer struct {
	mu       sync.Mutex
	state    State
	selected *incident.Incident
	gen      uint64
	stop     func() bool
	delay    time.Duration
	schedule Scheduler
	onChange func()
}

// Option customizes a Drawer.
type Option func(*Drawer)

// WithScheduler replaces time.AfterFunc, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(d *Drawer) { d.schedule = s }
}

// WithOnChange registers a callback fired after every state change.
// It is called without the drawer lock held.
func WithOnChange(fn func()) Option {
	return func(d *Drawer) { d.onChange = fn }
}

// NewDrawer returns a closed drawer. A delay <= 0 uses DefaultCloseDelay.
func NewDrawer(delay time.Duration, opts ...Option) *Drawer {
	if delay <= 0 {
		delay = DefaultCloseDelay
	}
	d := &Drawer{delay: delay, schedule: afterFunc}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Select opens the drawer on inc, cancelling any pending clear.
func (d *Drawer) Select(inc incident.Incident) {
	d.mu.Lock()
	d.cancelPendingLocked()
	d.gen++
	d.selected = &inc
	d.state = Open
	d.mu.Unlock()
	d.changed()
}

// RequestClose hides the drawer now and clears the selection after the delay.
func (d *Drawer) RequestClose() {
	d.mu.Lock()
	if d.state != Open {
		d.mu.Unlock()
		return
	}
	d.cancelPendingLocked()
	d.state = Closing
	gen := d.gen
	d.stop = d.schedule(d.delay, func() { d.clear(gen) })
	d.mu.Unlock()
	d.changed()
}

func (d *Drawer) clear(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != Closing {
		d.mu.Unlock()
		return
	}
	d.selected = nil
	d.state = Closed
	d.stop = nil
	d.mu.Unlock()
	d.changed()
}

func (d *Drawer) cancelPendingLocked() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

// Patch replaces the held copy when it has the same id as inc.
// Used to keep the drawer in step with status changes.
func (d *Drawer) Patch(inc incident.Incident) {
	d.mu.Lock()
	if d.selected == nil || d.selected.IncidentID != inc.IncidentID {
		d.mu.Unlock()
		return
	}
	cp := inc
	d.selected = &cp
	d.mu.Unlock()
	d.changed()
}

// State returns the current lifecycle state.
func (d *Drawer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Visible reports whether the drawer is shown.
func (d *Drawer) Visible() bool {
	return d.State() == Open
}

// Selected returns a copy of the selected incident, if any.
// The selection is still held while Closing.
func (d *Drawer) Selected() (incident.Incident, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return incident.Incident{}, false
	}
	return *d.selected, true
}

func (d *Drawer) changed() {
	if d.onChange != nil {
		d.onChange()
	}
}
