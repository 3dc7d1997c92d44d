package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJobSkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	job := &reaperJob{
		name: "slow",
		sweep: func(ctx context.Context) (int64, error) {
			startedOnce.Do(func() { close(started) })
			<-release
			return 1, nil
		},
	}
	r := NewReaper(time.Minute, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, r.runJob(context.Background(), job))
	}()
	<-started

	// A tick arriving while the first pass is still running is dropped.
	assert.False(t, r.runJob(context.Background(), job))

	close(release)
	wg.Wait()

	// Once the pass finishes the job is runnable again.
	assert.True(t, r.runJob(context.Background(), job))
}

func TestRunJobAppliesTimeout(t *testing.T) {
	var deadline time.Time
	job := &reaperJob{
		name: "timed",
		sweep: func(ctx context.Context) (int64, error) {
			d, ok := ctx.Deadline()
			require.True(t, ok)
			deadline = d
			return 0, nil
		},
	}
	r := NewReaper(time.Minute, 5*time.Second)
	require.True(t, r.runJob(context.Background(), job))
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestRunTicksRegisteredJobs(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	record := func(name string) Sweep {
		return func(ctx context.Context) (int64, error) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
			return 0, nil
		}
	}

	r := NewReaper(10*time.Millisecond, time.Second)
	r.Register("holds", record("holds"))
	r.Register("bookings", record("bookings"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts["holds"] >= 2 && counts["bookings"] >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
