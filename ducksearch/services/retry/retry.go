// Package retry re-runs an operation while the search provider is rate
// limiting it, with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"
)

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusRateLimitExhausted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusRateLimitExhausted:
		return "rate_limit_exhausted"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Policy zero values mean "use the default". A negative JitterFactor turns
// jitter off.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultPolicy: 10 attempts, 2s doubling up to 60s, 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  config.DefaultRetryAttempts,
		InitialDelay: config.DefaultRetryDelayMs * time.Millisecond,
		MaxDelay:     config.DefaultRetryMaxDelayS * time.Second,
		JitterFactor: config.DefaultRetryJitter,
	}
}

// FromConfig converts the retry section of the config.
func FromConfig(cfg config.RetryConfig) Policy {
	jitter := cfg.Jitter()
	if jitter == 0 {
		jitter = -1
	}
	return Policy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay(),
		MaxDelay:     cfg.MaxDelay(),
		JitterFactor: jitter,
	}
}

// WithDefaults fills unset fields from DefaultPolicy and keeps MaxDelay at or
// above InitialDelay.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.JitterFactor == 0 || p.JitterFactor >= 1 {
		p.JitterFactor = def.JitterFactor
	}
	return p
}

// Outcome is the tagged result of a retry sequence. Results is empty unless
// Status is StatusOK.
type Outcome[T any] struct {
	Status   Status
	Results  []T
	Attempts int
	Err      error
}

// Op is one attempt. It is never called concurrently with itself.
type Op[T any] func(ctx context.Context) ([]T, error)

// WithRetry runs op until it succeeds, fails with something other than a rate
// limit, runs out of attempts or ctx ends.
func WithRetry[T any](ctx context.Context, policy Policy, op Op[T]) Outcome[T] {
	policy = policy.WithDefaults()

	builder := retrypolicy.NewBuilder[[]T]().
		WithMaxRetries(policy.MaxAttempts - 1).
		WithBackoff(policy.InitialDelay, policy.MaxDelay).
		HandleIf(func(_ []T, err error) bool {
			return errors.Is(err, errs.ErrRateLimited)
		})
	if policy.JitterFactor > 0 {
		builder = builder.WithJitterFactor(policy.JitterFactor)
	}
	rp := builder.Build()

	var attempts atomic.Int32
	var lastErr error
	results, err := failsafe.With(rp).WithContext(ctx).Get(func() ([]T, error) {
		n := attempts.Add(1)
		if n > 1 {
			logging.AppLogger.Info("retrying rate limited search",
				zap.Int32("attempt", n),
				zap.Error(lastErr),
				zap.String("request_id", logging.RequestID(ctx)))
		}
		res, opErr := op(ctx)
		lastErr = opErr
		return res, opErr
	})

	out := Outcome[T]{Attempts: int(attempts.Load())}
	switch {
	case err == nil && len(results) > 0:
		out.Status = StatusOK
		out.Results = results
	case err == nil:
		out.Status = StatusEmpty
	case errors.Is(lastErr, errs.ErrRateLimited):
		out.Status = StatusRateLimitExhausted
		out.Err = lastErr
		logging.ErrorLogger.Warn("rate limit retries exhausted",
			zap.Int("attempts", out.Attempts),
			zap.Error(err),
			zap.String("request_id", logging.RequestID(ctx)))
	default:
		out.Status = StatusFailed
		out.Err = err
		if lastErr != nil {
			out.Err = lastErr
		}
	}
	return out
}
