package storage

import "sync"

// Serializer is the single process-wide critical section that makes
// "list existing versions -> compute next version -> write file" atomic
// with respect to other writers. Two unguarded writers could compute the
// same next version and silently overwrite each other.
//
// The region is coarse: one lock for the whole process, not per folder or
// identity. That trades throughput for simplicity and is a known
// bottleneck, not a bug. Construct one Serializer at startup and inject it
// into every writer.
type Serializer struct {
	mu sync.Mutex
}

func NewSerializer() *Serializer { return &Serializer{} }

// Do runs fn inside the exclusive region. The lock is released on every
// exit path, including a panic inside fn.
func (s *Serializer) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
