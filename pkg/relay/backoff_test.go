package relay

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackoff() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Hour, Multiplier: 2, Jitter: 0.2}
}

func TestBackoffPolicy_NextAttemptDelay_NoJitter(t *testing.T) {
	cfg := testBackoff()
	cfg.Jitter = 0
	p, err := NewBackoffPolicy(cfg, 1)
	require.NoError(t, err)

	assert.Equal(t, time.Second, p.NextAttemptDelay(0))
	assert.Equal(t, time.Second, p.NextAttemptDelay(1))
	assert.Equal(t, 2*time.Second, p.NextAttemptDelay(2))
	assert.Equal(t, 4*time.Second, p.NextAttemptDelay(3))
	assert.Equal(t, 512*time.Second, p.NextAttemptDelay(10))
	assert.Equal(t, time.Hour, p.NextAttemptDelay(13))
}

func TestBackoffPolicy_NextAttemptDelay_MonotonicUpToCap(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		p, err := NewBackoffPolicy(testBackoff(), seed)
		require.NoError(t, err)

		prev := time.Duration(0)
		for attempts := 1; attempts <= 64; attempts++ {
			d := p.NextAttemptDelay(attempts)
			assert.GreaterOrEqual(t, d, prev, "seed %d attempts %d", seed, attempts)
			assert.LessOrEqual(t, d, time.Hour)
			prev = d
		}
		assert.Equal(t, time.Hour, prev)
	}
}

func TestBackoffPolicy_NextAttemptDelay_JitterBounds(t *testing.T) {
	p, err := NewBackoffPolicy(testBackoff(), 7)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		d := p.NextAttemptDelay(3)
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.Less(t, d, time.Duration(float64(4*time.Second)*1.2))
	}
}

func TestBackoffPolicy_DeterministicForSeed(t *testing.T) {
	a, err := NewBackoffPolicy(testBackoff(), 42)
	require.NoError(t, err)
	b, err := NewBackoffPolicy(testBackoff(), 42)
	require.NoError(t, err)

	for attempts := 1; attempts <= 10; attempts++ {
		assert.Equal(t, a.NextAttemptDelay(attempts), b.NextAttemptDelay(attempts))
	}
}

func TestBackoffPolicy_Overflow(t *testing.T) {
	p, err := NewBackoffPolicy(testBackoff(), 1)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, p.NextAttemptDelay(math.MaxInt32))
	assert.Equal(t, time.Hour, p.NextAttemptDelay(math.MaxInt))
}

func TestBackoffPolicy_ConcurrentUse(t *testing.T) {
	p, err := NewBackoffPolicy(testBackoff(), 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempts := 1; attempts < 100; attempts++ {
				_ = p.NextAttemptDelay(attempts)
			}
		}()
	}
	wg.Wait()
}

func TestBackoffConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BackoffConfig)
	}{
		{"zero initial", func(c *BackoffConfig) { c.Initial = 0 }},
		{"max below initial", func(c *BackoffConfig) { c.Max = c.Initial / 2 }},
		{"multiplier below two", func(c *BackoffConfig) { c.Multiplier = 1.5 }},
		{"negative jitter", func(c *BackoffConfig) { c.Jitter = -0.1 }},
		{"jitter of one", func(c *BackoffConfig) { c.Jitter = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testBackoff()
			tt.mutate(&cfg)

			_, err := NewBackoffPolicy(cfg, 1)

			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}
