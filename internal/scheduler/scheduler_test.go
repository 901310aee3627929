package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestTask_Fires(t *testing.T) {
	task := NewTask()
	defer task.Stop()

	fired := make(chan struct{})
	task.Schedule(10*time.Millisecond, func(context.Context) { close(fired) })
	assert.True(t, task.Pending())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
	assert.Eventually(t, func() bool { return !task.Pending() }, time.Second, 5*time.Millisecond)
}

func TestTask_RescheduleReplacesPending(t *testing.T) {
	task := NewTask()
	defer task.Stop()

	var first, second atomic.Int32
	task.Schedule(20*time.Millisecond, func(context.Context) { first.Add(1) })
	task.Schedule(30*time.Millisecond, func(context.Context) { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced firing must not run")
}

func TestTask_StopCancelsPending(t *testing.T) {
	task := NewTask()

	var fired atomic.Bool
	task.Schedule(20*time.Millisecond, func(context.Context) { fired.Store(true) })
	task.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.False(t, task.Pending())

	task.Schedule(time.Millisecond, func(context.Context) { fired.Store(true) })
	time.Sleep(20 * time.Millisecond)
	assert.False(t, fired.Load(), "stopped task ignores Schedule")
}

func TestTask_StopCancelsRunningContext(t *testing.T) {
	task := NewTask()

	started := make(chan struct{})
	done := make(chan struct{})
	task.Schedule(0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(done)
	})

	<-started
	task.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("running firing context was not cancelled")
	}
}

func TestTask_RescheduleFromWithinFiring(t *testing.T) {
	task := NewTask()
	defer task.Stop()

	var count atomic.Int32
	var fn func(ctx context.Context)
	fn = func(ctx context.Context) {
		if count.Add(1) < 3 {
			task.Schedule(time.Millisecond, fn)
		}
		assert.NoError(t, ctx.Err(), "rescheduling must not cancel the running firing")
	}
	task.Schedule(time.Millisecond, fn)

	assert.Eventually(t, func() bool { return count.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestUntilNextMidnight(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	kolkata := mustLoad(t, "Asia/Kolkata")

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Duration
	}{
		{
			name: "evening",
			now:  time.Date(2024, 1, 15, 23, 30, 0, 0, la),
			loc:  la,
			want: 30 * time.Minute,
		},
		{
			name: "exactly midnight waits a full day",
			now:  time.Date(2024, 1, 15, 0, 0, 0, 0, la),
			loc:  la,
			want: 24 * time.Hour,
		},
		{
			name: "half-hour offset zone",
			now:  time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), // 23:30 IST
			loc:  kolkata,
			want: 30 * time.Minute,
		},
		{
			name: "spring forward day is 23h",
			now:  time.Date(2024, 3, 10, 0, 0, 0, 0, la),
			loc:  la,
			want: 23 * time.Hour,
		},
		{
			name: "fall back day is 25h",
			now:  time.Date(2024, 11, 3, 0, 0, 0, 0, la),
			loc:  la,
			want: 25 * time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UntilNextMidnight(tt.now, tt.loc))
		})
	}
}

func TestTodayKey(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	// 2024-01-16 03:00 UTC is still the 15th in Los Angeles.
	now := time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", TodayKey(now, la))
	assert.Equal(t, "2024-01-16", TodayKey(now, time.UTC))
}
