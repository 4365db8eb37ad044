package llm

import (
	"context"
	"sync"
	"time"
)

// throttleRetryInterval is how long a blocked caller waits before trying to
// take a token again.
const throttleRetryInterval = 100 * time.Millisecond

// ThrottledProvider caps completion calls at a fixed number of requests per
// minute using a token bucket. Invoice extraction fans out one model call per
// chunk, so a large invoice can burst past provider-side limits without a
// local cap.
type ThrottledProvider struct {
	inner Provider
	rpm   int

	mu       sync.Mutex
	tokens   int
	lastFill time.Time
}

// NewThrottledProvider wraps inner with a token bucket allowing at most rpm
// requests per minute. The bucket starts full.
func NewThrottledProvider(inner Provider, rpm int) Provider {
	return &ThrottledProvider{
		inner:    inner,
		rpm:      rpm,
		tokens:   rpm,
		lastFill: time.Now(),
	}
}

func (t *ThrottledProvider) Name() string {
	return t.inner.Name()
}

func (t *ThrottledProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := t.take(ctx); err != nil {
		return nil, err
	}
	return t.inner.Complete(ctx, req)
}

// take blocks until a token is available or ctx is done.
func (t *ThrottledProvider) take(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()
		refill := int(now.Sub(t.lastFill).Seconds() * float64(t.rpm) / 60.0)
		if refill > 0 {
			t.tokens += refill
			if t.tokens > t.rpm {
				t.tokens = t.rpm
			}
			t.lastFill = now
		}
		if t.tokens > 0 {
			t.tokens--
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(throttleRetryInterval):
		}
	}
}
