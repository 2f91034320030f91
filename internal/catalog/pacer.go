package catalog

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a minimum gap between upstream calls. Burst of one keeps
// requests strictly sequential; the first call passes immediately.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(gap time.Duration) *pacer {
	if gap <= 0 {
		return &pacer{}
	}
	return &pacer{limiter: rate.NewLimiter(rate.Every(gap), 1)}
}

func (p *pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
