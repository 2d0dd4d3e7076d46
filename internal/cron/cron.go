// Package cron runs the daemon's periodic jobs on one cooperative
// scheduler with explicit shutdown: jobs receive a context that is
// cancelled when the scheduler stops, so an in-flight run can wind down
// instead of being abandoned.
package cron

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one periodic task. It must honor ctx cancellation.
type Job func(ctx context.Context)

type entry struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler owns a set of named periodic jobs.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every registers a job to run on the given interval. Must be called before
// Start; the first run happens one interval after Start, not immediately.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, interval: interval, job: job})
}

// Start launches one goroutine per registered job. The parent context
// bounds the whole scheduler in addition to Stop.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
	log.Printf("🔄 Scheduler started with %d jobs", len(s.entries))
}

// Stop cancels all jobs and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()
	if !started || cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	log.Println("🛑 Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.invoke(ctx, e)
		}
	}
}

// invoke runs one job, containing panics so a misbehaving job cannot take
// down the scheduler.
func (s *Scheduler) invoke(ctx context.Context, e entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Job %s panicked: %v", e.name, r)
		}
	}()
	e.job(ctx)
}
