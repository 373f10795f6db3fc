package translate

import (
	"context"
	"time"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/llm"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// RetryPolicy controls WithRetry.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times starting at 1.5 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 1500 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// WithRetry retries transient failures of a REST-backed translator with the
// same backoff the LLM clients use. Client errors such as a bad key are
// returned at once.
func WithRetry(next ports.Translator, policy RetryPolicy) ports.Translator {
	return ports.TranslatorFunc(func(ctx context.Context, req ports.TranslationRequest) (ports.Translation, error) {
		var lastErr error
		for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
			out, err := next.Translate(ctx, req)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if ctx.Err() != nil || attempt == policy.MaxRetries || !llm.IsRetryable(err) {
				break
			}

			select {
			case <-ctx.Done():
				return ports.Translation{}, ctx.Err()
			case <-time.After(llm.Backoff(attempt, policy.BaseDelay, policy.MaxDelay)):
			}
		}
		return ports.Translation{}, lastErr
	})
}
