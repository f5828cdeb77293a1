// Package sessions scopes artifact stores, rule registries, and validation
// runs to individual user sessions and exposes them over HTTP.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
)

// Config controls session expiry.
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// System defines the public contract for session operations.
type System interface {
	Handler(maxUploadSize int64) *Handler
	Start(lc *lifecycle.Coordinator) error

	Catalog() []rules.Definition
	Create() (*Session, error)
	Find(id uuid.UUID) (*Session, error)
	List() []Snapshot
	Delete(id uuid.UUID) error
	Sweep(now time.Time) int
}

type manager struct {
	lc     *lifecycle.Coordinator
	opts   Options
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// New creates the session System. Sessions derive their lifecycle from lc,
// so shutting lc down cancels every session's in-flight work.
func New(lc *lifecycle.Coordinator, opts Options, cfg Config, logger *slog.Logger) System {
	if len(opts.Rules) == 0 {
		opts.Rules = rules.Catalog()
	}
	return &manager{
		lc:       lc,
		opts:     opts,
		cfg:      cfg,
		logger:   logger.With("system", "sessions"),
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *manager) Handler(maxUploadSize int64) *Handler {
	return NewHandler(m, m.logger, maxUploadSize)
}

// Start runs the idle sweeper and closes every session on shutdown.
func (m *manager) Start(lc *lifecycle.Coordinator) error {
	if m.cfg.IdleTimeout > 0 && m.cfg.SweepInterval > 0 {
		err := lc.Go(func(ctx context.Context) {
			ticker := time.NewTicker(m.cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					if n := m.Sweep(now); n > 0 {
						m.logger.Info("expired idle sessions", "count", n)
					}
				}
			}
		})
		if err != nil {
			return fmt.Errorf("start session sweeper: %w", err)
		}
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.closeAll()
	})
	return nil
}

func (m *manager) Catalog() []rules.Definition {
	return slices.Clone(m.opts.Rules)
}

func (m *manager) Create() (*Session, error) {
	if m.lc.Closed() {
		return nil, lifecycle.ErrClosed
	}

	s := newSession(m.lc, m.opts, m.logger)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("session created", "session", s.ID)
	return s, nil
}

func (m *manager) Find(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *manager) List() []Snapshot {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	return out
}

func (m *manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Close()
}

// Sweep closes every session idle longer than the configured timeout and
// returns how many were closed.
func (m *manager) Sweep(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.cfg.IdleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := s.Close(); err != nil {
			m.logger.Warn("session close failed", "session", s.ID, "error", err)
		}
	}
	return len(expired)
}

func (m *manager) closeAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Go(func() {
			if err := s.Close(); err != nil {
				m.logger.Warn("session close failed", "session", s.ID, "error", err)
			}
		})
	}
	wg.Wait()
}
