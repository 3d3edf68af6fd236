package lint

import (
	"fmt"
	"sync"
)

// Scratch is request-local memo storage. A new Scratch is created with every
// Request and dropped with it.
type Scratch struct {
	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	val any
	err error
}

func newScratch() *Scratch {
	return &Scratch{entries: make(map[string]memoEntry)}
}

// Memo returns the value stored under key, calling build to produce it on
// first use. Errors are memoized too, so a failing build runs once.
// build runs without the lock held and may itself call Memo with other keys.
func (s *Scratch) Memo(key string, build func() (any, error)) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return e.val, e.err
	}
	s.mu.Unlock()

	val, err := build()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.val, e.err
	}
	s.entries[key] = memoEntry{val: val, err: err}
	return val, err
}

// Len returns the number of memoized entries.
func (s *Scratch) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Memo is the typed form of Scratch.Memo.
func Memo[T any](s *Scratch, key string, build func() (T, error)) (T, error) {
	var zero T
	v, err := s.Memo(key, func() (any, error) { return build() })
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("scratch entry %q holds %T", key, v)
	}
	return t, nil
}
