package selection

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// manualScheduler records scheduled callbacks; tests fire them by hand.
type manualScheduler struct {
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (m *manualScheduler) schedule(d time.Duration, fn func()) func() bool {
	t := &manualTimer{delay: d, fn: fn}
	m.timers = append(m.timers, t)
	return func() bool {
		wasActive := !t.stopped
		t.stopped = true
		return wasActive
	}
}

// fireAll runs every timer regardless of cancellation, as a late
// time.AfterFunc callback might.
func (m *manualScheduler) fireAll() {
	for _, t := range m.timers {
		t.fn()
	}
}

func TestSelectOpensDrawer(t *testing.T) {
	d := NewDrawer(0)
	assert.Equal(t, Closed, d.State())

	d.Select(incident.Incident{IncidentID: "x"})
	assert.Equal(t, Open, d.State())
	assert.True(t, d.Visible())

	got, ok := d.Selected()
	require.True(t, ok)
	assert.Equal(t, "x", got.IncidentID)
}

func TestRequestCloseClearsAfterDelay(t *testing.T) {
	ms := &manualScheduler{}
	d := NewDrawer(300*time.Millisecond, WithScheduler(ms.schedule))

	d.Select(incident.Incident{IncidentID: "x"})
	d.RequestClose()
	assert.Equal(t, Closing, d.State())
	assert.False(t, d.Visible())
	_, ok := d.Selected()
	assert.True(t, ok, "selection held while closing")

	require.Len(t, ms.timers, 1)
	assert.Equal(t, 300*time.Millisecond, ms.timers[0].delay)
	ms.fireAll()

	assert.Equal(t, Closed, d.State())
	_, ok = d.Selected()
	assert.False(t, ok)
}

func TestSelectDuringCloseCancelsPendingClear(t *testing.T) {
	ms := &manualScheduler{}
	d := NewDrawer(300*time.Millisecond, WithScheduler(ms.schedule))

	d.Select(incident.Incident{IncidentID: "X"})
	d.RequestClose()
	d.Select(incident.Incident{IncidentID: "Y"})

	require.Len(t, ms.timers, 1)
	assert.True(t, ms.timers[0].stopped)

	// Even a stale callback that already fired must not clear Y.
	ms.fireAll()

	assert.Equal(t, Open, d.State())
	got, ok := d.Selected()
	require.True(t, ok)
	assert.Equal(t, "Y", got.IncidentID)
}

func TestRequestCloseWhenNotOpenIsNoop(t *testing.T) {
	ms := &manualScheduler{}
	d := NewDrawer(0, WithScheduler(ms.schedule))

	d.RequestClose()
	assert.Equal(t, Closed, d.State())
	assert.Empty(t, ms.timers)

	d.Select(incident.Incident{IncidentID: "x"})
	d.RequestClose()
	d.RequestClose()
	assert.Len(t, ms.timers, 1)
}

func TestPatchUpdatesMatchingSelection(t *testing.T) {
	d := NewDrawer(0)
	d.Select(incident.Incident{IncidentID: "x", Status: incident.StatusOpen})

	d.Patch(incident.Incident{IncidentID: "other", Status: incident.StatusResolved})
	got, _ := d.Selected()
	assert.Equal(t, incident.StatusOpen, got.Status)

	d.Patch(incident.Incident{IncidentID: "x", Status: incident.StatusResolved})
	got, _ = d.Selected()
	assert.Equal(t, incident.StatusResolved, got.Status)
}

func TestOnChangeFires(t *testing.T) {
	var n atomic.Int32
	ms := &manualScheduler{}
	d := NewDrawer(0, WithScheduler(ms.schedule), WithOnChange(func() { n.Add(1) }))

	d.Select(incident.Incident{IncidentID: "x"})
	d.RequestClose()
	ms.fireAll()
	assert.Equal(t, int32(3), n.Load())
}

func TestRealTimerClears(t *testing.T) {
	d := NewDrawer(10 * time.Millisecond)
	d.Select(incident.Incident{IncidentID: "x"})
	d.RequestClose()

	require.Eventually(t, func() bool { return d.State() == Closed }, time.Second, 5*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "closing", Closing.String())
	assert.Equal(t, "closed", Closed.String())
}
