package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledGenerator wraps a TextGenerator with an outbound rate limit so
// compaction bursts cannot flood the provider. Waiting respects the
// caller's context deadline.
type ThrottledGenerator struct {
	gen     TextGenerator
	limiter *rate.Limiter
}

// Throttle wraps gen with a sustained requests-per-second limit and the
// given burst size.
func Throttle(gen TextGenerator, reqPerSec float64, burst int) *ThrottledGenerator {
	if reqPerSec <= 0 {
		reqPerSec = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledGenerator{
		gen:     gen,
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// Complete waits for a rate token, then delegates to the wrapped generator.
func (t *ThrottledGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.gen.Complete(ctx, prompt)
}

// GetModel returns the wrapped generator's model name.
func (t *ThrottledGenerator) GetModel() string {
	return t.gen.GetModel()
}
