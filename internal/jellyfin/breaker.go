package jellyfin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "jellyfin"

// Refresher is anything that can trigger a library refresh.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
	// OnStateChange observes transitions, e.g. for metrics.
	OnStateChange func(from, to gobreaker.State)
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		Cooldown:            5 * time.Minute,
	}
}

// Breaker fails fast while the server keeps rejecting refreshes.
type Breaker struct {
	next Refresher
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Refresher, cfg BreakerConfig) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("notifier circuit breaker", "name", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from, to)
			}
		},
		// a cancelled pass says nothing about the server
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Refresh(ctx context.Context) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Refresh(ctx)
	})
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// IsRejected reports whether err came from an open breaker rather than the
// server.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
