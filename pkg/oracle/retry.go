// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryConfig tunes RetryingProvider's backoff schedule.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig matches the oracle's default tuning.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        8 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

var retryablePatterns = []string{
	"timeout",
	"temporary failure",
	"connection reset",
	"connection refused",
	"no such host",
	"i/o timeout",
	"rate limit",
	"too many requests",
	"429", "500", "502", "503",
}

// RetryingProvider wraps a Provider with exponential-backoff retry and a
// circuit breaker, so a single flaky call does not surface as
// ErrOracleUnavailable when a retry would have succeeded.
type RetryingProvider struct {
	inner   Provider
	retry   RetryConfig
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewRetryingProvider wraps inner with the given retry/circuit-breaker
// tuning. A nil logger defaults to a no-op logger.
func NewRetryingProvider(inner Provider, retry RetryConfig, breaker *CircuitBreaker, logger *zap.Logger) *RetryingProvider {
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{inner: inner, retry: retry, breaker: breaker, logger: logger}
}

// Model delegates to the inner provider.
func (p *RetryingProvider) Model() string { return p.inner.Model() }

// Complete retries the inner provider's Complete call on retryable
// failures using exponential backoff, subject to the circuit breaker.
func (p *RetryingProvider) Complete(ctx context.Context, system string, user string) (string, error) {
	if !p.breaker.AllowRequest() {
		return "", fmt.Errorf("circuit breaker open (state=%s)", p.breaker.State())
	}

	var lastErr error
	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			p.logger.Info("retrying oracle provider call", zap.Int("attempt", attempt+1), zap.Int("maxAttempts", p.retry.MaxAttempts))
		}

		result, err := p.inner.Complete(ctx, system, user)
		if err == nil {
			p.breaker.RecordSuccess()
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			p.breaker.RecordFailure()
			return "", fmt.Errorf("non-retryable provider error: %w", err)
		}

		if attempt == p.retry.MaxAttempts-1 {
			p.breaker.RecordFailure()
			break
		}

		backoff := p.calculateBackoff(attempt)
		p.logger.Warn("oracle provider call failed, backing off", zap.Error(err), zap.Duration("backoff", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			p.breaker.RecordFailure()
			return "", fmt.Errorf("provider call cancelled during retry: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("provider failed after %d attempts: %w", p.retry.MaxAttempts, lastErr)
}

func (p *RetryingProvider) calculateBackoff(attempt int) time.Duration {
	backoff := float64(p.retry.InitialBackoff) * math.Pow(p.retry.BackoffMultiplier, float64(attempt))
	if backoff > float64(p.retry.MaxBackoff) {
		backoff = float64(p.retry.MaxBackoff)
	}
	return time.Duration(backoff)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
