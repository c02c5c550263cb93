package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure the decorators implement the interface.
var (
	_ driven.EmbeddingService = (*retryEmbedder)(nil)
	_ driven.EmbeddingService = (*rateLimitedEmbedder)(nil)
)

// RetryConfig configures retry behaviour for embedding calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Cap on the exponential backoff
	Timeout    time.Duration // Per-attempt timeout (0 = none)
}

// Default retry timings.
const (
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second
)

// WithRetry wraps an embedding service with per-attempt timeouts and
// bounded exponential backoff. Language-model calls are never wrapped.
// With no retries and no timeout the service is returned unchanged.
func WithRetry(inner driven.EmbeddingService, cfg RetryConfig) driven.EmbeddingService {
	if inner == nil || (cfg.MaxRetries <= 0 && cfg.Timeout <= 0) {
		return inner
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return &retryEmbedder{inner: inner, cfg: cfg}
}

type retryEmbedder struct {
	inner driven.EmbeddingService
	cfg   RetryConfig
}

func (r *retryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry(ctx, r.cfg, func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

func (r *retryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return retry(ctx, r.cfg, func(ctx context.Context) ([][]float32, error) {
		return r.inner.EmbedBatch(ctx, texts)
	})
}

func (r *retryEmbedder) Dimensions() int                { return r.inner.Dimensions() }
func (r *retryEmbedder) ModelName() string              { return r.inner.ModelName() }
func (r *retryEmbedder) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *retryEmbedder) Close() error                   { return r.inner.Close() }

func retry[T any](ctx context.Context, cfg RetryConfig, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(cfg, attempt)
			logger.Debug("retrying embedding in %s (attempt %d): %v", delay, attempt, lastErr)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		out, err := call(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !Retryable(err) {
			return zero, err
		}
	}
	if cfg.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxDelay.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return min(delay, cfg.MaxDelay)
}

// Retryable reports whether an embedding failure is worth another attempt.
// Cancellation and client errors are not; timeouts, rate limits and
// server errors are.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	for _, code := range []string{"400", "401", "403", "404", "422"} {
		if strings.Contains(msg, code) {
			return false
		}
	}
	return true
}

// WithRateLimit wraps an embedding service with a token bucket of rps
// requests per second. rps <= 0 returns the service unchanged.
func WithRateLimit(inner driven.EmbeddingService, rps float64, burst int) driven.EmbeddingService {
	if inner == nil || rps <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedEmbedder{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type rateLimitedEmbedder struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

func (r *rateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.Embed(ctx, text)
}

func (r *rateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.EmbedBatch(ctx, texts)
}

func (r *rateLimitedEmbedder) Dimensions() int                { return r.inner.Dimensions() }
func (r *rateLimitedEmbedder) ModelName() string              { return r.inner.ModelName() }
func (r *rateLimitedEmbedder) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *rateLimitedEmbedder) Close() error                   { return r.inner.Close() }
