package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is substituted when a poller is configured with a
// non-positive interval.
const DefaultInterval = 10 * time.Second

// Poller drives an effect at a fixed interval: once immediately on start,
// then every interval until Stop or context cancellation. At most one timer
// exists per poller; Start on a running poller tears the old timer down first.
type Poller struct {
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. A non-positive interval selects DefaultInterval.
func NewPoller(logger *slog.Logger, interval time.Duration) (*Poller, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{logger: logger, interval: interval}, nil
}

// Interval returns the configured tick interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start begins polling: effect runs once right away, then on every tick.
// The effect receives a context canceled when the poller stops, so a network
// response arriving after teardown cannot be applied on its behalf.
func (p *Poller) Start(ctx context.Context, effect func(context.Context)) {
	p.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		effect(runCtx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				// Re-check before running: a Stop between the tick firing
				// and this branch must still suppress the effect.
				if runCtx.Err() != nil {
					return
				}
				effect(runCtx)
			}
		}
	}()
}

// Stop ends polling and waits for the loop to exit. Idempotent; no effect
// invocation happens after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
