package upload

import (
	"context"
	"time"

	"github.com/JaimeStill/preflight/internal/artifacts"
)

// Simulator is a Producer that performs no transfer. It waits Interval before
// each step and reports 0, Step, 2*Step, ... up to 100.
type Simulator struct {
	Step     int
	Interval time.Duration
}

// NewSimulator creates a Simulator, falling back to steps of 10 every 100ms.
func NewSimulator(step int, interval time.Duration) *Simulator {
	if step <= 0 || step > 100 {
		step = 10
	}
	if interval < 0 {
		interval = 100 * time.Millisecond
	}
	return &Simulator{Step: step, Interval: interval}
}

func (s *Simulator) Produce(ctx context.Context, _ artifacts.Artifact, report func(int)) (Receipt, error) {
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()

	for p := 0; ; p += s.Step {
		p = min(p, 100)

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
		report(p)

		if p == 100 {
			return Receipt{}, nil
		}
		timer.Reset(s.Interval)
	}
}
