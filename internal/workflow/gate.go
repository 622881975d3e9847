package workflow

import (
	"context"
	"sync"
	"time"
)

// RateGate pauses every worker when the catalog asks for a backoff. The
// pause applies globally because the limit is per client, not per task.
type RateGate struct {
	mu    sync.Mutex
	until time.Time
}

// Pause blocks workers for at least d from now. Overlapping pauses keep
// the later deadline.
func (g *RateGate) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	g.mu.Lock()
	if deadline.After(g.until) {
		g.until = deadline
	}
	g.mu.Unlock()
}

// Wait blocks until any active pause has elapsed or ctx is cancelled.
func (g *RateGate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		remaining := time.Until(g.until)
		g.mu.Unlock()
		if remaining <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
