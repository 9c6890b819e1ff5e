// Package ratelimit paces outbound API calls with a token bucket and provides the clock and
// sleeper abstractions the retry logic is built on.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed pause between the end of one call and the start of the next.
// It is a single-token bucket whose token is taken when a call finishes: the first call passes
// at once, and each later call waits until interval has elapsed since the previous Done.
// Time spent inside a call never counts toward the pause.
type Pacer struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	clock    Clock
	sleeper  Sleeper
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithClock sets the clock used to reserve tokens.
func WithClock(c Clock) Option {
	return func(p *Pacer) { p.clock = c }
}

// WithSleeper sets the sleeper used to wait for a token.
func WithSleeper(s Sleeper) Option {
	return func(p *Pacer) { p.sleeper = s }
}

// NewPacer creates a pacer that pauses interval after each call. A zero interval disables
// pacing.
func NewPacer(interval time.Duration, opts ...Option) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	p := &Pacer{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
		clock:    SystemClock{},
		sleeper:  SystemSleeper{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured pause.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the pause after the previous call has elapsed or ctx is canceled.
// Every successful Wait must be followed by Done once the call finishes, whatever its outcome.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	tokens := p.limiter.TokensAt(p.clock.Now())
	p.mu.Unlock()

	if tokens >= 1 {
		return nil
	}
	delay := time.Duration((1 - tokens) / float64(p.limiter.Limit()) * float64(time.Second))
	return p.sleeper.Sleep(ctx, delay)
}

// Done marks the end of a call and starts the pause before the next one.
func (p *Pacer) Done() {
	if p.interval <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.ReserveN(p.clock.Now(), 1)
}
