package service

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Sweep is one reclamation pass: it returns how many rows it reclaimed.
type Sweep func(ctx context.Context) (int64, error)

type reaperJob struct {
	name    string
	sweep   Sweep
	running atomic.Bool // in-process reentrancy flag, one per job type
}

// Reaper runs the registered sweeps on a fixed interval.  Each job type
// is non-reentrant: a tick that arrives while the previous pass of the
// same job is still running is skipped.  An in-process flag is enough
// here, the sweeps themselves are idempotent and guarded by conditional
// updates in the database, so overlap from another process is harmless.
type Reaper struct {
	interval time.Duration
	timeout  time.Duration
	jobs     []*reaperJob
}

// NewReaper builds a reaper ticking at the given interval with the given
// per-pass timeout.
func NewReaper(interval, timeout time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Reaper{interval: interval, timeout: timeout}
}

// Register adds a named sweep.  Must be called before Run.
func (r *Reaper) Register(name string, sweep Sweep) {
	r.jobs = append(r.jobs, &reaperJob{name: name, sweep: sweep})
}

// Run ticks until ctx is cancelled.  Jobs run concurrently with each
// other so a slow sweep of one type never delays the other, but never
// concurrently with themselves.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, job := range r.jobs {
				go r.runJob(ctx, job)
			}
		}
	}
}

// runJob executes one pass of the job unless a previous pass is still in
// flight.  Reports whether the pass ran.
func (r *Reaper) runJob(ctx context.Context, job *reaperJob) bool {
	if !job.running.CompareAndSwap(false, true) {
		log.Printf("reaper: %s still running, skipping tick", job.name)
		return false
	}
	defer job.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	reclaimed, err := job.sweep(ctx)
	if err != nil {
		log.Printf("reaper: %s failed: %v", job.name, err)
		return true
	}
	if reclaimed > 0 {
		log.Printf("reaper: %s reclaimed %d", job.name, reclaimed)
	}
	return true
}
