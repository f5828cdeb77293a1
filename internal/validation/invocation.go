package validation

import (
	"context"

	"github.com/JaimeStill/preflight/internal/rules"
)

// Invocation is a single triggered check of one rule.
type Invocation struct {
	Rule    rules.ID
	Attempt int

	done   chan struct{}
	result rules.Rule
}

func newInvocation(id rules.ID, attempt int) *Invocation {
	return &Invocation{
		Rule:    id,
		Attempt: attempt,
		done:    make(chan struct{}),
	}
}

// Done is closed once the verdict has been committed.
func (i *Invocation) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the verdict is committed or ctx ends, and returns the
// rule as committed.
func (i *Invocation) Wait(ctx context.Context) (rules.Rule, error) {
	select {
	case <-i.done:
		return i.result, nil
	case <-ctx.Done():
		return rules.Rule{}, ctx.Err()
	}
}

func (i *Invocation) finish(r rules.Rule) {
	i.result = r
	close(i.done)
}
