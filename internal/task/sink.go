package task

import "sync"

// Sink collects outcomes published by workers. Publishing never blocks.
// A single consumer drains it once the pool has been joined.
type Sink struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Publish appends an outcome.
func (s *Sink) Publish(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// DrainAll returns everything published so far and empties the Sink.
// Called before the pool is joined it may return a partial set.
func (s *Sink) DrainAll() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.outcomes
	s.outcomes = nil
	return out
}

// Len returns the number of outcomes waiting to be drained.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}
