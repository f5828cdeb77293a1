package sessions

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of change an Event carries.
type EventType string

const (
	EventArtifact EventType = "artifact"
	EventRule     EventType = "rule"
	EventRun      EventType = "run"
	EventNotice   EventType = "notice"
	EventClosed   EventType = "closed"
)

// Event is a session change streamed to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	Time      time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Variant styles a notice.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a transient, user-facing notification. The persisted detail of
// any error lives on the affected artifact or rule.
type Notice struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// RunProgress reports a full re-run's advance through the rule list.
type RunProgress struct {
	Progress int    `json:"progress"`
	Step     string `json:"step,omitempty"`
	Done     bool   `json:"done"`
}

// Bus fans session events out to subscribers. A slow subscriber loses its
// oldest buffered events rather than blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufferSize  int
	dropped     atomic.Int64
	closed      bool
}

// NewBus creates a Bus whose subscribers buffer up to bufferSize events.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{bufferSize: bufferSize}
}

// Subscribe returns a channel that receives every subsequent event. The
// channel is closed by Unsubscribe or Close. Subscribing to a closed bus
// returns a closed channel.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes ch.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if sub == ch {
			close(sub)
			continue
		}
		kept = append(kept, sub)
	}
	b.subscribers = kept
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub <- e:
			continue
		default:
		}

		// full: drop the oldest and retry once
		select {
		case <-sub:
			b.dropped.Add(1)
		default:
		}
		select {
		case sub <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events discarded for slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
