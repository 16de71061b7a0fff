// Package scheduler runs handler work in the background so update ingestion
// never blocks on handler latency. The lifecycle manager watches Pending and
// closes the scheduler before draining.
package scheduler

import (
	"errors"
	"sync/atomic"
)

var ErrClosed = errors.New("scheduler: closed")

// Scheduler spawns each submitted job on its own goroutine, bounded by a
// concurrency limit. Pending counts jobs submitted but not yet finished.
type Scheduler struct {
	sem     chan struct{}
	pending atomic.Int64
	closed  atomic.Bool
}

// New creates a scheduler running at most limit jobs at once.
func New(limit int) *Scheduler {
	if limit <= 0 {
		limit = 64
	}
	return &Scheduler{sem: make(chan struct{}, limit)}
}

// Submit queues a job. Once Close has been called every Submit is rejected;
// jobs already accepted run to completion.
func (s *Scheduler) Submit(job func()) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Add(-1)
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		job()
	}()
	return nil
}

// Pending reports jobs accepted and not yet finished.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Close stops the scheduler from accepting new jobs. It does not wait;
// draining is the caller's concern.
func (s *Scheduler) Close() {
	s.closed.Store(true)
}

// Closed reports whether the scheduler has stopped accepting work.
func (s *Scheduler) Closed() bool {
	return s.closed.Load()
}
