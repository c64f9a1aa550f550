package translate

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"talklink/pkg/metrics"
)

// BreakerSettings tunes the circuit breaker around an engine.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// guarded wraps an engine with a per-call timeout, a circuit breaker and metrics.
type guarded struct {
	name    string
	next    Translator
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func newGuarded(name string, next Translator, timeout time.Duration, bs BreakerSettings, logger *logrus.Logger) *guarded {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		// a missing key is configuration, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoCredential)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"engine": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("[translate] circuit breaker state changed")
		},
	})
	return &guarded{name: name, next: next, timeout: timeout, cb: cb}
}

func (g *guarded) Translate(ctx context.Context, text string, tone Tone) (Result, error) {
	start := time.Now()
	out, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return g.next.Translate(ctx, text, tone)
	})
	metrics.RecordTranslation(g.name, time.Since(start), err == nil)
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

// Complete shares the breaker with Translate: both hit the same backend.
func (g *guarded) Complete(ctx context.Context, p Prompt) (string, error) {
	c, ok := g.next.(Completer)
	if !ok {
		return "", Unavailable(g.name+" cannot run completions", nil)
	}
	out, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.Complete(ctx, p)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (g *guarded) execute(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		return call(ctx)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, Unavailable("oracle circuit open", err)
	case err != nil && !errors.Is(err, ErrUnavailable):
		return nil, Unavailable("oracle failed", err)
	case err != nil:
		return nil, err
	}
	return out, nil
}
