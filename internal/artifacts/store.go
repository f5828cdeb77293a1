package artifacts

import (
	"sync"

	"github.com/google/uuid"
)

// Observer receives the new state of a slot after every write. A nil
// artifact means the slot was cleared. Observers run synchronously in write
// order and may read from the Store, but must not write to it.
type Observer func(slot Slot, a *Artifact)

// Store holds at most one artifact per slot. It performs no validation;
// callers own media type checks and progress rules.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	slots   map[Slot]*Artifact

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		slots:     make(map[Slot]*Artifact),
		observers: make(map[int]Observer),
	}
}

// Set replaces the artifact in slot. A nil artifact clears the slot.
func (s *Store) Set(slot Slot, a *Artifact) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var stored *Artifact
	s.mu.Lock()
	if a == nil {
		delete(s.slots, slot)
	} else {
		c := *a
		stored = &c
		s.slots[slot] = stored
	}
	s.mu.Unlock()

	s.notify(slot, clone(stored))
}

// Get returns a copy of the artifact in slot, or nil when the slot is empty.
func (s *Store) Get(slot Slot) *Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.slots[slot])
}

// Update applies fn to the artifact in slot only if that artifact still has
// the given id. It reports whether the write happened; writes for an artifact
// that was replaced or removed are dropped.
func (s *Store) Update(slot Slot, id uuid.UUID, fn func(a *Artifact)) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current, ok := s.slots[slot]
	if !ok || current.ID != id {
		s.mu.Unlock()
		return false
	}
	next := *current
	fn(&next)
	s.slots[slot] = &next
	s.mu.Unlock()

	s.notify(slot, clone(&next))
	return true
}

// Ready reports whether every given slot holds a ready artifact.
func (s *Store) Ready(slots ...Slot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, slot := range slots {
		a, ok := s.slots[slot]
		if !ok || !a.Ready {
			return false
		}
	}
	return true
}

// Snapshot returns copies of every occupied slot.
func (s *Store) Snapshot() map[Slot]*Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Slot]*Artifact, len(s.slots))
	for slot, a := range s.slots {
		out[slot] = clone(a)
	}
	return out
}

// Observe registers fn and returns a function that removes it.
func (s *Store) Observe(fn Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(slot Slot, a *Artifact) {
	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(slot, clone(a))
	}
}

func clone(a *Artifact) *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	if a.PageCount != nil {
		n := *a.PageCount
		c.PageCount = &n
	}
	return &c
}
