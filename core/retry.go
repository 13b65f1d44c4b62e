package core

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// RetryConfig defines retry behavior for provider calls.
type RetryConfig struct {
	MaxAttempts   int           // Maximum number of attempts (including initial)
	InitialDelay  time.Duration // Delay before the first retry
	MaxDelay      time.Duration // Upper bound for any single delay
	BackoffFactor float64       // Multiplier applied per retry
	Jitter        bool          // Spread delays by up to ±10%
}

// DefaultRetryConfig is a single attempt; MAX_RETRIES raises MaxAttempts.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:   1,
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// RetryClassifier determines if an error should be retried.
type RetryClassifier func(error) bool

// ShouldRetry is the default classifier. Validation errors and context
// errors are never retried; transport failures, rate limits and 5xx are.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsValidationError(err) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "temporary", "rate limit", "429", "500", "502", "503", "504"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// RetryPolicy wraps an operation with bounded exponential backoff.
type RetryPolicy struct {
	config     RetryConfig
	classifier RetryClassifier
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy; a nil classifier uses ShouldRetry.
func NewRetryPolicy(config RetryConfig, classifier RetryClassifier) *RetryPolicy {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &RetryPolicy{config: config, classifier: classifier, sleep: sleepContext}
}

// MaxAttempts returns the attempt budget.
func (p *RetryPolicy) MaxAttempts() int {
	if p == nil {
		return 1
	}
	return p.config.MaxAttempts
}

// Delay computes the wait before the given attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.config.InitialDelay) * math.Pow(p.config.BackoffFactor, float64(attempt-2)))
	if p.config.MaxDelay > 0 && delay > p.config.MaxDelay {
		delay = p.config.MaxDelay
	}

	if p.config.Jitter && delay > 0 {
		spread := float64(delay) * 0.1
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return delay
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. A nil policy runs op exactly once.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p == nil {
		return op(ctx)
	}

	var err error
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if sleepErr := p.sleep(ctx, p.Delay(attempt)); sleepErr != nil {
				return err
			}
		}
		err = op(ctx)
		if err == nil || !p.classifier(err) {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
