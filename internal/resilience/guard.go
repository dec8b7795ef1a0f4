package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrPermanent marks an error that retrying cannot fix.
var ErrPermanent = errors.New("resilience: permanent failure")

// Guard runs a call with retries, exponential backoff, a per-attempt timeout
// and a circuit breaker.
type Guard struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Timeout     time.Duration
}

// Do calls fn until it succeeds, returns an error wrapping ErrPermanent, the
// attempts run out or ctx ends. ErrOpenCircuit is returned without calling fn
// while the breaker is open. A nil Breaker only retries.
func (g Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	breaker := g.Breaker
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	base := g.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if breaker != nil && !breaker.Allow(ctx) {
			g.record(breaker, "rejected")
			if lastErr != nil {
				return errors.Join(ErrOpenCircuit, lastErr)
			}
			return ErrOpenCircuit
		}
		err := g.once(ctx, fn)
		if err == nil {
			breaker.report(ctx, true)
			g.record(breaker, "success")
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrPermanent) {
			// the dependency answered; the input was bad
			breaker.report(ctx, true)
			g.record(breaker, "permanent")
			return err
		}
		breaker.report(ctx, false)
		g.record(breaker, "failure")
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(base, attempt, g.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (g Guard) once(ctx context.Context, fn func(context.Context) error) error {
	if g.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	return fn(callCtx)
}

func (g Guard) record(b *Breaker, result string) {
	if GuardAttempts == nil {
		return
	}
	label := "default"
	if b != nil {
		b.mu.Lock()
		label = b.label()
		b.mu.Unlock()
	}
	GuardAttempts.WithLabelValues(label, result).Inc()
}

func (b *Breaker) report(ctx context.Context, success bool) {
	if b != nil {
		b.Report(ctx, success)
	}
}
