// Package checks provides the verdict strategies that resolve a validating
// rule to passed or failed.
package checks

import (
	"context"
	"sync"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/rules"
)

// Verdict is a strategy's judgement of an artifact.
type Verdict struct {
	Passed  bool
	Details string
}

// Strategy checks one rule against the Artwork artifact. An error means no
// verdict could be reached; the caller records it as a failure.
type Strategy interface {
	Check(ctx context.Context, a artifacts.Artifact) (Verdict, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, a artifacts.Artifact) (Verdict, error)

func (f StrategyFunc) Check(ctx context.Context, a artifacts.Artifact) (Verdict, error) {
	return f(ctx, a)
}

// Registry maps rule ids to strategies. Rules without a registered
// strategy resolve through the fallback.
type Registry struct {
	mu         sync.RWMutex
	strategies map[rules.ID]Strategy
	fallback   Strategy
}

// NewRegistry creates a Registry whose fallback is NotImplemented.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[rules.ID]Strategy),
		fallback:   NotImplemented{},
	}
}

// Register binds s to id, replacing any earlier binding.
func (r *Registry) Register(id rules.ID, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[id] = s
}

// For returns the strategy bound to id.
func (r *Registry) For(id rules.ID) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.strategies[id]; ok {
		return s
	}
	return r.fallback
}

// NotImplemented fails every check with ErrNotImplemented.
type NotImplemented struct{}

func (NotImplemented) Check(context.Context, artifacts.Artifact) (Verdict, error) {
	return Verdict{}, ErrNotImplemented
}
