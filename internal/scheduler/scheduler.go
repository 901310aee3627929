// Package scheduler holds the one-shot timers behind the midnight cache reset
// and the Google token refresh.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task is a reschedulable one-shot timer. At most one firing is pending;
// Schedule replaces it.
type Task struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending context.CancelFunc
	running map[uint64]context.CancelFunc
	gen     uint64
	stopped bool
}

// NewTask returns an idle task.
func NewTask() *Task {
	return &Task{running: make(map[uint64]context.CancelFunc)}
}

// Schedule arms fn to run once after d, cancelling any pending firing first.
// fn's context is cancelled when the task is stopped.
func (t *Task) Schedule(d time.Duration, fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.clearPendingLocked()

	if d < 0 {
		d = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.gen++
	gen := t.gen
	t.pending = cancel
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.gen != gen || t.stopped {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.pending = nil
		t.running[gen] = cancel
		t.mu.Unlock()

		defer func() {
			t.mu.Lock()
			delete(t.running, gen)
			t.mu.Unlock()
			cancel()
		}()
		fn(ctx)
	})
}

// Pending reports whether a firing is armed.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Cancel drops the pending firing without stopping the task.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearPendingLocked()
}

// Stop cancels the pending firing and the context of any running one.
// A stopped task ignores later Schedule calls.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.clearPendingLocked()
	for gen, cancel := range t.running {
		cancel()
		delete(t.running, gen)
	}
}

func (t *Task) clearPendingLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.pending != nil {
		t.pending()
		t.pending = nil
	}
	t.gen++
}

// ── calendar helpers ──

// NextMidnight returns the first instant of the day after now in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// UntilNextMidnight is the wait from now to NextMidnight.
func UntilNextMidnight(now time.Time, loc *time.Location) time.Duration {
	return NextMidnight(now, loc).Sub(now)
}

// TodayKey formats now's date in loc as YYYY-MM-DD.
func TodayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}
