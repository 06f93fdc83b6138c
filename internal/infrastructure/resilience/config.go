package resilience

import "time"

// Config drives retry with exponential backoff and the per-operation
// circuit breaker. Zero fields fall back to DefaultConfig.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

const (
	defaultRetryMaxAttempts    = 3
	defaultRetryInitialBackoff = 100 * time.Millisecond
	defaultRetryMaxBackoff     = 400 * time.Millisecond
	defaultRetryMultiplier     = 2.0

	defaultBreakerMinRequests      = 10
	defaultBreakerFailureRatio     = 0.5
	defaultBreakerOpenTimeout      = 30 * time.Second
	defaultBreakerHalfOpenMaxCalls = 2
)

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:        defaultRetryMaxAttempts,
		RetryInitialBackoff:     defaultRetryInitialBackoff,
		RetryMaxBackoff:         defaultRetryMaxBackoff,
		RetryMultiplier:         defaultRetryMultiplier,
		BreakerEnabled:          true,
		BreakerMinRequests:      defaultBreakerMinRequests,
		BreakerFailureRatio:     defaultBreakerFailureRatio,
		BreakerOpenTimeout:      defaultBreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: defaultBreakerHalfOpenMaxCalls,
	}
}

func (c Config) normalize() Config {
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = defaultRetryMaxAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = defaultRetryInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = defaultRetryMaxBackoff
	}
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = defaultRetryMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = defaultBreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = defaultBreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = defaultBreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = defaultBreakerHalfOpenMaxCalls
	}
	return c
}
