package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("model unavailable")

// flaky fails the first n calls.
func flaky(n int32, calls *atomic.Int32) ports.IntentResolver {
	return ports.ResolverFunc(func(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
		if calls.Add(1) <= n {
			return ports.Detection{}, errFlaky
		}
		return ports.Detection{Event: "goodbye"}, nil
	})
}

func fastConfig() resilience.Config {
	return resilience.Config{
		RetryAttempts:     3,
		RetryInitialDelay: time.Millisecond,
		BreakerThreshold:  2,
		BreakerTimeout:    time.Minute,
		Timeout:           5 * time.Second,
	}
}

func TestResolve_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	r := resilience.Wrap(flaky(2, &calls), fastConfig())

	det, err := r.Resolve(context.Background(), ports.DetectionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "goodbye", det.Event)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "closed", r.BreakerState())
}

func TestResolve_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	cfg := fastConfig()
	cfg.RetryAttempts = 1
	r := resilience.Wrap(flaky(100, &calls), cfg)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), ports.DetectionRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, "open", r.BreakerState())

	_, err := r.Resolve(context.Background(), ports.DetectionRequest{})
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the resolver")
}

func TestResolve_Bulkhead(t *testing.T) {
	var calls atomic.Int32
	cfg := fastConfig()
	cfg.MaxConcurrent = 2
	r := resilience.Wrap(flaky(0, &calls), cfg)

	det, err := r.Resolve(context.Background(), ports.DetectionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "goodbye", det.Event)
}
