package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// RetryConfig holds configuration for retry behavior around a remote
// extraction method.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential backoff factor.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryMethod wraps a Method and retries transient failures with
// exponential backoff. Non-retryable errors fail immediately.
type RetryMethod struct {
	method Method
	config RetryConfig
	logger *slog.Logger
}

// NewRetryMethod creates a retry wrapper around method.
func NewRetryMethod(method Method, config RetryConfig, logger *slog.Logger) *RetryMethod {
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultRetryConfig().MaxRetries
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultRetryConfig().InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = DefaultRetryConfig().BackoffMultiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryMethod{method: method, config: config, logger: logger}
}

func (r *RetryMethod) Name() string { return r.method.Name() }

func (r *RetryMethod) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			r.logger.Debug("retrying extraction",
				"method", r.method.Name(),
				"attempt", attempt,
				"delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		candidates, err := r.method.Extract(ctx, text, opts)
		if err == nil {
			return candidates, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", r.config.MaxRetries, lastErr)
}

// calculateDelay computes the exponential backoff delay for an attempt,
// capped at MaxDelay.
func (r *RetryMethod) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

// isRetryableError reports whether an error looks transient: rate limits,
// server-side failures and connection problems.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"rate limit",
		"too many requests",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
