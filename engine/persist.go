package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// persistWithRetry runs a persistence operation with short exponential
// backoff. Persistence of queue items and violations is best-effort from
// the caller's point of view: the in-memory verdict has already been
// decided, and a storage hiccup must never block or change it.
func (eng *Engine) persistWithRetry(ctx context.Context, what string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 3 * time.Second

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if err != nil {
		persistErrorCount.Inc()
		eng.Logger.Error("persistence failed after retries", "what", what, "err", err)
	}
	return err
}
