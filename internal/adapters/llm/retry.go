package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

// RetryingGenerator wraps another Generator with a per-call deadline and
// exponential-backoff retries. Context cancellation is terminal; everything
// else is treated as transient.
type RetryingGenerator struct {
	inner    domain.Generator
	timeout  time.Duration
	maxTries uint
}

func NewRetryingGenerator(inner domain.Generator, timeout time.Duration, maxTries uint) *RetryingGenerator {
	if maxTries == 0 {
		maxTries = 1
	}
	return &RetryingGenerator{
		inner:    inner,
		timeout:  timeout,
		maxTries: maxTries,
	}
}

func (r *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log := observability.LoggerFromContext(ctx)

	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := r.inner.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			log.Warn("generation attempt failed", "attempt", attempt, "error", err)
			return "", err
		}
		return out, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(r.maxTries),
	)
}
