package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type triggerRecorder struct {
	mu       sync.Mutex
	triggers []Trigger
	firedAt  []time.Time
}

func (r *triggerRecorder) fire(tr Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, tr)
	r.firedAt = append(r.firedAt, time.Now())
}

func (r *triggerRecorder) snapshot() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Trigger(nil), r.triggers...)
}

func TestBurstCoalescesToSingleFiring(t *testing.T) {
	rec := &triggerRecorder{}
	d := NewDebouncer(60*time.Millisecond, 0, rec.fire)

	for range 5 {
		d.Notify()
		time.Sleep(10 * time.Millisecond)
	}
	last := time.Now()

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	triggers := rec.snapshot()
	require.Equal(t, 5, triggers[0].NotifyCount)
	require.Equal(t, "quiet", triggers[0].Reason)

	// Fired roughly one quiet window after the last notification.
	rec.mu.Lock()
	elapsed := rec.firedAt[0].Sub(last)
	rec.mu.Unlock()
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)

	// And exactly once: no further firings.
	time.Sleep(150 * time.Millisecond)
	require.Len(t, rec.snapshot(), 1)
}

func TestCancelClearsPending(t *testing.T) {
	rec := &triggerRecorder{}
	d := NewDebouncer(40*time.Millisecond, 0, rec.fire)

	d.Notify()
	require.True(t, d.Pending())
	d.Cancel()
	require.False(t, d.Pending())

	time.Sleep(100 * time.Millisecond)
	require.Empty(t, rec.snapshot())
}

func TestCancelWithoutPendingIsNoop(t *testing.T) {
	d := NewDebouncer(time.Second, 0, func(Trigger) {})
	d.Cancel()
	require.False(t, d.Pending())
}

func TestSeparateBurstsFireSeparately(t *testing.T) {
	rec := &triggerRecorder{}
	d := NewDebouncer(30*time.Millisecond, 0, rec.fire)

	d.Notify()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	d.Notify()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	triggers := rec.snapshot()
	require.Equal(t, 1, triggers[0].NotifyCount)
	require.Equal(t, 1, triggers[1].NotifyCount)
}

func TestMaxDelayForcesFiring(t *testing.T) {
	rec := &triggerRecorder{}
	// Quiet window longer than the notify spacing: only max_delay can fire.
	d := NewDebouncer(200*time.Millisecond, 80*time.Millisecond, rec.fire)

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		d.Notify()
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "max_delay", rec.snapshot()[0].Reason)

	d.Cancel()
}
