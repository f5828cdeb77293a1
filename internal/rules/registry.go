package rules

import (
	"fmt"
	"sync"
	"time"
)

// Observer receives a rule's state after every status change. Observers run
// synchronously in write order and may read from the Registry, but must not
// write to it.
type Observer func(r Rule)

// Registry holds the ordered rule list and each rule's current status.
// Every rule starts pending and is never removed.
type Registry struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	order   []ID
	rules   map[ID]*Rule

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// NewRegistry creates a Registry with every definition pending.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{
		order:     make([]ID, 0, len(defs)),
		rules:     make(map[ID]*Rule, len(defs)),
		observers: make(map[int]Observer),
	}
	for _, d := range defs {
		r.order = append(r.order, d.ID)
		r.rules[d.ID] = &Rule{Definition: d, Status: StatusPending}
	}
	return r
}

// List returns every rule in catalog order.
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.rules[id])
	}
	return out
}

// Get returns the rule with the given id.
func (r *Registry) Get(id ID) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}
	return *rule, nil
}

// Begin moves a rule into validating and returns the attempt number that
// must accompany its Commit. A rule that is already validating cannot begin
// again.
func (r *Registry) Begin(id ID) (int, error) {
	var attempt int
	err := r.write(id, func(rule *Rule) error {
		if !CanTransition(rule.Status, StatusValidating) {
			return fmt.Errorf("%w: %s", ErrAlreadyValidating, id)
		}
		rule.Status = StatusValidating
		rule.Details = ""
		rule.ErrorDetails = ""
		rule.Attempt++
		attempt = rule.Attempt
		return nil
	})
	return attempt, err
}

// Commit records the terminal outcome of attempt. It reports false, and
// changes nothing, when the rule is no longer validating that attempt.
func (r *Registry) Commit(id ID, attempt int, outcome Outcome) (Rule, bool) {
	var committed Rule
	err := r.write(id, func(rule *Rule) error {
		next := StatusFailed
		if outcome.Passed {
			next = StatusPassed
		}
		if !CanTransition(rule.Status, next) || rule.Attempt != attempt {
			return ErrInvalidTransition
		}
		rule.Status = next
		if outcome.Passed {
			rule.Details = outcome.Details
			rule.ErrorDetails = ""
		} else {
			rule.Details = ""
			rule.ErrorDetails = outcome.Details
		}
		committed = *rule
		return nil
	})
	return committed, err == nil
}

// Reset returns every rule to pending for a full re-run. It fails without
// changing anything when any rule is validating.
func (r *Registry) Reset() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	for _, id := range r.order {
		if !CanTransition(r.rules[id].Status, StatusPending) {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadyValidating, id)
		}
	}

	now := time.Now().UTC()
	var changed []Rule
	for _, id := range r.order {
		rule := r.rules[id]
		if rule.Status == StatusPending {
			continue
		}
		rule.Status = StatusPending
		rule.Details = ""
		rule.ErrorDetails = ""
		rule.UpdatedAt = &now
		changed = append(changed, *rule)
	}
	r.mu.Unlock()

	for _, rule := range changed {
		r.notify(rule)
	}
	return nil
}

// Validating reports whether any rule is currently validating.
func (r *Registry) Validating() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Status == StatusValidating {
			return true
		}
	}
	return false
}

// Observe registers fn and returns a function that removes it.
func (r *Registry) Observe(fn Observer) func() {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *Registry) write(id ID, fn func(rule *Rule) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	rule, ok := r.rules[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}

	next := *rule
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return err
	}
	now := time.Now().UTC()
	next.UpdatedAt = &now
	*rule = next
	r.mu.Unlock()

	r.notify(next)
	return nil
}

func (r *Registry) notify(rule Rule) {
	r.obsMu.RLock()
	observers := make([]Observer, 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.obsMu.RUnlock()

	for _, fn := range observers {
		fn(rule)
	}
}
