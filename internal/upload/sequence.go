package upload

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/preflight/internal/artifacts"
)

// Sequence is the finite, non-restartable stream of progress values for one
// selected artifact. Values strictly increase from 0 to at most 100; the
// channel closes when the transfer completes, fails, or is cancelled.
type Sequence struct {
	ArtifactID uuid.UUID
	Slot       artifacts.Slot

	values chan int
	done   chan struct{}
	cancel context.CancelFunc

	mu         sync.Mutex
	err        error
	superseded bool
	last       int
	finished   bool
}

func newSequence(slot artifacts.Slot, id uuid.UUID, cancel context.CancelFunc) *Sequence {
	return &Sequence{
		ArtifactID: id,
		Slot:       slot,
		values:     make(chan int, 101),
		done:       make(chan struct{}),
		cancel:     cancel,
		last:       -1,
	}
}

// Progress returns the channel of progress values. It never blocks the producer.
func (s *Sequence) Progress() <-chan int {
	return s.values
}

// Done is closed once the sequence has ended.
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// Err reports why the sequence ended: nil after a completed upload,
// ErrSuperseded, ErrCancelled, or the producer's error. It is nil until Done.
func (s *Sequence) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the sequence ends or ctx is done.
func (s *Sequence) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the sequence. No store write happens after Cancel returns
// because every write is conditional on the artifact still owning its slot
// and on the sequence context being live.
func (s *Sequence) Cancel() {
	s.cancel()
}

func (s *Sequence) supersede() {
	s.mu.Lock()
	s.superseded = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Sequence) emit(p int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || p <= s.last {
		return false
	}
	s.last = p
	s.values <- p
	return true
}

func (s *Sequence) lastValue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sequence) finish(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	if err != nil && s.superseded {
		err = ErrSuperseded
	}
	s.err = err
	s.finished = true
	close(s.values)
	s.mu.Unlock()

	close(s.done)
}
