package validation

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/rules"
)

// Run is a full re-run of every rule.
type Run struct {
	Total int

	mu        sync.Mutex
	completed int
	skipped   map[rules.ID]error
	done      chan struct{}
}

// Progress returns the percentage of rules that reached a verdict or were
// skipped.
func (r *Run) Progress() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Total == 0 {
		return 100
	}
	return (r.completed + len(r.skipped)) * 100 / r.Total
}

// Skipped returns the rules that could not be triggered and why.
func (r *Run) Skipped() map[rules.ID]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[rules.ID]error, len(r.skipped))
	for id, err := range r.skipped {
		out[id] = err
	}
	return out
}

// Done is closed when every rule has been handled.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes or ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) advance() {
	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
}

func (r *Run) skip(id rules.ID, err error) {
	r.mu.Lock()
	r.skipped[id] = err
	r.mu.Unlock()
}

// RunAll resets every rule to pending and triggers them all, at most
// MaxConcurrent at a time. Nothing is reset when the Artwork artifact is not
// ready, when any rule is validating, or when the run cannot be scheduled.
func (o *Orchestrator) RunAll() (*Run, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if o.active.Load() != nil {
		return nil, fmt.Errorf("%w: full run in progress", rules.ErrAlreadyValidating)
	}

	if !o.store.Ready(artifacts.SlotArtwork) {
		return nil, ErrMissingArtifact
	}

	run := &Run{
		Total:   len(o.registry.List()),
		skipped: make(map[rules.ID]error),
		done:    make(chan struct{}),
	}

	// scheduled before the reset so a closed lifecycle leaves every rule as it was
	start := make(chan bool, 1)
	err := o.lc.Go(func(ctx context.Context) {
		if !<-start {
			return
		}
		defer close(run.done)
		defer o.active.Store(nil)
		o.runAll(ctx, run, o.registry.List())
	})
	if err != nil {
		return nil, err
	}

	o.active.Store(run)
	if err := o.registry.Reset(); err != nil {
		o.active.Store(nil)
		start <- false
		return nil, err
	}
	start <- true

	o.logger.Info("full validation run started", "rules", run.Total, "max_concurrent", o.cfg.MaxConcurrent)
	return run, nil
}

// Running reports whether a full run is in progress. It is true from just
// before the reset until every rule of the run has been handled.
func (o *Orchestrator) Running() bool {
	return o.active.Load() != nil
}

func (o *Orchestrator) runAll(ctx context.Context, run *Run, rs []rules.Rule) {
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrent)

	for _, r := range rs {
		if ctx.Err() != nil {
			run.skip(r.ID, ctx.Err())
			continue
		}
		g.Go(func() error {
			inv, err := o.Trigger(r.ID)
			if err != nil {
				run.skip(r.ID, err)
				return nil
			}
			if _, err := inv.Wait(ctx); err != nil {
				run.skip(r.ID, err)
				return nil
			}
			run.advance()
			return nil
		})
	}
	g.Wait()

	o.logger.Info("full validation run finished", "summary", o.Summary(), "skipped", len(run.Skipped()))
}
