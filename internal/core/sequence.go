package core

import "sync"

// Sequence hands out transaction identities. Each ledger owns its own
// sequence so independent ledgers never share counters.
type Sequence struct {
	mu   sync.Mutex
	last int64
}

// NewSequence returns a sequence whose first value is start+1.
func NewSequence(start int64) *Sequence {
	return &Sequence{last: start}
}

// Next returns the next identity.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Observe makes sure future identities are greater than id. It is used when
// replaying a record log.
func (s *Sequence) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

// Last returns the most recently issued or observed identity.
func (s *Sequence) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
