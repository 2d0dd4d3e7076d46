package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsJobsPeriodically(t *testing.T) {
	var runs atomic.Int64
	s := NewScheduler()
	s.Every("counter", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran only %d times", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopCancelsInFlightJob(t *testing.T) {
	sawCancel := make(chan struct{})
	entered := make(chan struct{})
	s := NewScheduler()
	s.Every("slow", 10*time.Millisecond, func(ctx context.Context) {
		close(entered)
		<-ctx.Done()
		close(sawCancel)
	})
	s.Start(context.Background())

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-sawCancel:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight job did not observe cancellation")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the job wound down")
	}
}

func TestPanickingJobDoesNotKillScheduler(t *testing.T) {
	var runs atomic.Int64
	s := NewScheduler()
	s.Every("flaky", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
		panic("boom")
	})
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("panicking job stopped rescheduling after %d runs", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	s := NewScheduler()
	s.Stop() // must not panic or block
}
