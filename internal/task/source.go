package task

import (
	"context"
	"sync"
)

// Stats is a point-in-time snapshot of a Source's counters.
type Stats struct {
	Put       int
	Taken     int
	Acked     int
	Abandoned int
}

// Pending returns how many tasks are neither acknowledged nor abandoned.
func (s Stats) Pending() int {
	return s.Put - s.Acked - s.Abandoned
}

// Source is a FIFO of tasks shared by pool workers.
//
// Taking a task and acknowledging it are separate steps: an empty Source
// means there is nothing left to hand out, while a drained Source means
// every task handed out has also been processed. A worker may hold the last
// task long after the Source became empty.
type Source struct {
	mu    sync.Mutex
	items []Task

	put       int
	taken     int
	acked     int
	abandoned int

	// closed rejects new work: later Puts are abandoned on arrival.
	closed  bool
	dropped []Task

	// drained is closed whenever nothing is pending and replaced by Put.
	drained chan struct{}
}

// NewSource creates a Source pre-loaded with tasks.
func NewSource(tasks ...Task) *Source {
	s := &Source{
		items:   make([]Task, 0, len(tasks)),
		drained: make(chan struct{}),
	}
	close(s.drained)
	for _, t := range tasks {
		s.Put(t)
	}
	return s
}

// Put appends a task. It never blocks and is safe to call while workers
// are taking from the Source. A task put after Close is abandoned at once.
func (s *Source) Put(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.put++
		s.abandoned++
		s.dropped = append(s.dropped, t)
		return
	}
	if s.pendingLocked() == 0 {
		s.drained = make(chan struct{})
	}
	s.items = append(s.items, t)
	s.put++
}

// TryTake removes the oldest task. It returns ok=false immediately when the
// Source is empty. Each task is delivered to exactly one caller.
func (s *Source) TryTake() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Task{}, false
	}
	t := s.items[0]
	s.items[0] = Task{}
	s.items = s.items[1:]
	s.taken++
	return t, true
}

// Ack records that one taken task has been fully processed.
// It panics if there is no outstanding take to acknowledge.
func (s *Source) Ack() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acked >= s.taken {
		panic("task: Ack called without a matching TryTake")
	}
	s.acked++
	s.signalLocked()
}

// Abandon discards every task that has not been taken yet and counts them
// as abandoned, so WaitDrained can return after an early shutdown.
// It returns the discarded tasks.
func (s *Source) Abandon() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandonLocked()
}

// Close abandons every untaken task and seals the Source in one step, so
// no Put can reopen it once nobody is left to take. It returns the
// discarded tasks. Close is idempotent.
func (s *Source) Close() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.abandonLocked()
}

// Dropped returns every task abandoned so far, in the order it was dropped.
func (s *Source) Dropped() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.dropped...)
}

func (s *Source) abandonLocked() []Task {
	if len(s.items) == 0 {
		return nil
	}
	tasks := s.items
	s.items = nil
	s.abandoned += len(tasks)
	s.dropped = append(s.dropped, tasks...)
	s.signalLocked()
	return tasks
}

// WaitDrained blocks until every task ever put has been acknowledged or
// abandoned.
func (s *Source) WaitDrained() {
	<-s.drainedChan()
}

// WaitDrainedContext is WaitDrained bounded by ctx.
func (s *Source) WaitDrainedContext(ctx context.Context) error {
	select {
	case <-s.drainedChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks not yet taken.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns a snapshot of the counters.
func (s *Source) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Put:       s.put,
		Taken:     s.taken,
		Acked:     s.acked,
		Abandoned: s.abandoned,
	}
}

func (s *Source) drainedChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

func (s *Source) pendingLocked() int {
	return s.put - s.acked - s.abandoned
}

// signalLocked closes drained on the transition to zero pending tasks.
func (s *Source) signalLocked() {
	if s.pendingLocked() == 0 {
		close(s.drained)
	}
}
