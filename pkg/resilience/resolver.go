// Package resilience wraps an IntentResolver with fortify's bulkhead, circuit
// breaker and retry. The engine itself never retries detection; hosts that
// talk to a remote model opt in by wrapping their resolver.
package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/ports"
)

// Config tunes the wrapper. Zero values fall back to DefaultConfig.
type Config struct {
	// MaxConcurrent bounds concurrent detections. 0 disables the bulkhead.
	MaxConcurrent int

	// BreakerThreshold is the number of consecutive failed detections that opens the breaker.
	BreakerThreshold int
	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration

	// RetryAttempts includes the first call.
	RetryAttempts     int
	RetryInitialDelay time.Duration
	RetryMultiplier   float64

	// Timeout bounds one detection, retries included. 0 means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns the settings used for remote models.
func DefaultConfig() Config {
	return Config{
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
		RetryAttempts:     3,
		RetryInitialDelay: 200 * time.Millisecond,
		RetryMultiplier:   2.0,
		Timeout:           60 * time.Second,
	}
}

// Option configures the wrapper.
type Option func(*Resolver)

// WithLogger sets the logger used to report breaker rejections.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// Resolver is a resilient ports.IntentResolver.
type Resolver struct {
	next     ports.IntentResolver
	bulkhead bulkhead.Bulkhead[ports.Detection]
	breaker  circuitbreaker.CircuitBreaker[ports.Detection]
	retry    retry.Retry[ports.Detection]
	timeout  time.Duration
	logger   *slog.Logger
}

// Wrap decorates next. Composition order: bulkhead, timeout, breaker, retry.
func Wrap(next ports.IntentResolver, cfg Config, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = def.BreakerThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryInitialDelay <= 0 {
		cfg.RetryInitialDelay = def.RetryInitialDelay
	}
	if cfg.RetryMultiplier <= 0 {
		cfg.RetryMultiplier = def.RetryMultiplier
	}
	threshold := uint32(cfg.BreakerThreshold) // #nosec G115 -- positive, checked above

	r := &Resolver{
		next: next,
		breaker: circuitbreaker.New[ports.Detection](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerTimeout,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		retry: retry.New[ports.Detection](retry.Config{
			MaxAttempts:   cfg.RetryAttempts,
			InitialDelay:  cfg.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    cfg.RetryMultiplier,
		}),
		timeout: cfg.Timeout,
		logger:  logging.NewNop(),
	}
	if cfg.MaxConcurrent > 0 {
		r.bulkhead = bulkhead.New[ports.Detection](bulkhead.Config{MaxConcurrent: cfg.MaxConcurrent})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements ports.IntentResolver.
func (r *Resolver) Resolve(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	if r.bulkhead == nil {
		return r.guarded(ctx, req)
	}
	return r.bulkhead.Execute(ctx, func(ctx context.Context) (ports.Detection, error) {
		return r.guarded(ctx, req)
	})
}

func (r *Resolver) guarded(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	det, err := r.breaker.Execute(ctx, func(ctx context.Context) (ports.Detection, error) {
		return r.retry.Do(ctx, func(ctx context.Context) (ports.Detection, error) {
			return r.next.Resolve(ctx, req)
		})
	})
	if err != nil {
		r.logger.Warn("intent detection failed", "state", req.StateName, "breaker", r.BreakerState(), "err", err)
	}
	return det, err
}

// BreakerState reports the circuit breaker state such as "closed" or "open".
func (r *Resolver) BreakerState() string {
	return r.breaker.State().String()
}
