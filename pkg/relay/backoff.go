package relay

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// BackoffConfig parameterizes the retry delay curve.
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
	// Jitter is the upper bound of the random fraction added to each delay, in [0, 1).
	Jitter float64 `mapstructure:"jitter"`
}

func (c BackoffConfig) Validate() error {
	switch {
	case c.Initial <= 0:
		return fmt.Errorf("%w: backoff.initial must be positive", ErrInvalidArgument)
	case c.Max < c.Initial:
		return fmt.Errorf("%w: backoff.max (%s) is below backoff.initial (%s)", ErrInvalidArgument, c.Max, c.Initial)
	case c.Multiplier < 2:
		return fmt.Errorf("%w: backoff.multiplier must be at least 2, got %v", ErrInvalidArgument, c.Multiplier)
	case c.Jitter < 0 || c.Jitter >= 1:
		return fmt.Errorf("%w: backoff.jitter must be in [0, 1), got %v", ErrInvalidArgument, c.Jitter)
	}
	return nil
}

// BackoffPolicy computes the delay before the next delivery attempt:
//
//	min(Max, Initial * Multiplier^(attempts-1) * (1 + u)),  u in [0, Jitter)
//
// A multiplier of at least 2 and jitter below 1 keep the sequence
// non-decreasing even for unlucky draws. Safe for concurrent use.
type BackoffPolicy struct {
	cfg BackoffConfig
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoffPolicy validates cfg. Equal seeds give equal delay sequences.
func NewBackoffPolicy(cfg BackoffConfig, seed uint64) (*BackoffPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BackoffPolicy{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// NextAttemptDelay returns the delay after the given number of failed attempts.
// Values below 1 are treated as 1.
func (p *BackoffPolicy) NextAttemptDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	maxDelay := float64(p.cfg.Max)
	base := float64(p.cfg.Initial) * math.Pow(p.cfg.Multiplier, float64(attempts-1))
	if math.IsInf(base, 0) || math.IsNaN(base) || base >= maxDelay {
		return p.cfg.Max
	}

	delay := base * (1 + p.jitter())
	if delay >= maxDelay {
		return p.cfg.Max
	}
	return time.Duration(delay)
}

func (p *BackoffPolicy) jitter() float64 {
	if p.cfg.Jitter == 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() * p.cfg.Jitter
}

// Config returns the policy parameters.
func (p *BackoffPolicy) Config() BackoffConfig {
	return p.cfg
}
