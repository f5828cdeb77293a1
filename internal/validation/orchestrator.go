// Package validation drives rules from pending through validating to a
// terminal verdict and derives the aggregate result.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/checks"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
)

// Config bounds rule invocations.
type Config struct {
	// Timeout caps a single invocation. Zero disables the cap.
	Timeout time.Duration
	// MaxConcurrent caps invocations running during RunAll.
	MaxConcurrent int
}

// Orchestrator triggers rules against the Artwork artifact and commits their
// verdicts. Each invocation runs independently as tracked work on the
// owning lifecycle; a failure in one never touches another rule.
type Orchestrator struct {
	registry *rules.Registry
	store    *artifacts.Store
	checks   *checks.Registry
	lc       *lifecycle.Coordinator
	logger   *slog.Logger
	cfg      Config

	runMu  sync.Mutex
	active atomic.Pointer[Run]
}

// New creates an Orchestrator.
func New(
	registry *rules.Registry,
	store *artifacts.Store,
	strategies *checks.Registry,
	lc *lifecycle.Coordinator,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		checks:   strategies,
		lc:       lc,
		logger:   logger.With("system", "validation"),
		cfg:      cfg,
	}
}

// Trigger moves rule id to validating and starts its check. It fails
// without changing the rule when the Artwork artifact is not ready, the
// rule is unknown, or the rule is already validating.
func (o *Orchestrator) Trigger(id rules.ID) (*Invocation, error) {
	if _, err := o.registry.Get(id); err != nil {
		return nil, err
	}

	art := o.store.Get(artifacts.SlotArtwork)
	if art == nil || !art.Ready {
		return nil, ErrMissingArtifact
	}

	attempt, err := o.registry.Begin(id)
	if err != nil {
		return nil, err
	}

	inv := newInvocation(id, attempt)
	strategy := o.checks.For(id)

	err = o.lc.Go(func(ctx context.Context) {
		o.invoke(ctx, inv, strategy, *art)
	})
	if err != nil {
		o.commit(inv, rules.Outcome{Details: err.Error()})
		return nil, err
	}

	o.logger.Info("rule triggered", "rule", id, "attempt", attempt, "artifact", art.ID)
	return inv, nil
}

// Validate triggers rule id and waits for its verdict.
func (o *Orchestrator) Validate(ctx context.Context, id rules.ID) (rules.Rule, error) {
	inv, err := o.Trigger(id)
	if err != nil {
		return rules.Rule{}, err
	}
	return inv.Wait(ctx)
}

// Rules returns every rule in catalog order.
func (o *Orchestrator) Rules() []rules.Rule {
	return o.registry.List()
}

// Summary derives the aggregate result from the current rule statuses.
func (o *Orchestrator) Summary() Summary {
	return Summarize(o.registry.List())
}

// Report returns the validation report, or ErrReportUnavailable unless the
// summary allows one.
func (o *Orchestrator) Report() (Report, error) {
	rs := o.registry.List()
	summary := Summarize(rs)
	if !summary.ReportAvailable {
		return Report{}, ErrReportUnavailable
	}

	snapshot := o.store.Snapshot()
	arts := make([]artifacts.Artifact, 0, len(snapshot))
	for _, slot := range artifacts.Slots {
		if a, ok := snapshot[slot]; ok && a != nil {
			arts = append(arts, *a)
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		Artifacts:   arts,
		Rules:       rs,
		Summary:     summary,
	}, nil
}

func (o *Orchestrator) invoke(ctx context.Context, inv *Invocation, s checks.Strategy, art artifacts.Artifact) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	verdict, err := check(ctx, s, art)

	outcome := rules.Outcome{Passed: verdict.Passed, Details: verdict.Details}
	if err != nil {
		outcome = rules.Outcome{Details: err.Error()}
		o.logger.Warn("rule check failed", "rule", inv.Rule, "attempt", inv.Attempt, "error", err)
	}

	o.commit(inv, outcome)
}

func (o *Orchestrator) commit(inv *Invocation, outcome rules.Outcome) {
	r, ok := o.registry.Commit(inv.Rule, inv.Attempt, outcome)
	if !ok {
		r, _ = o.registry.Get(inv.Rule)
		o.logger.Warn("stale rule verdict dropped", "rule", inv.Rule, "attempt", inv.Attempt)
	} else {
		o.logger.Info("rule resolved", "rule", inv.Rule, "attempt", inv.Attempt, "status", r.Status)
	}
	inv.finish(r)
}

// check runs s and converts a panic into an error so it stays contained
// within this invocation.
func check(ctx context.Context, s checks.Strategy, art artifacts.Artifact) (v checks.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = checks.Verdict{}
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return s.Check(ctx, art)
}
