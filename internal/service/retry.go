package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/event-ticketing/internal/monitoring"
)

// retrier runs a transaction again when it lost a lock race.
type retrier struct {
	attempts int
	backoff  time.Duration
}

func newRetrier(attempts int, backoff time.Duration) retrier {
	if attempts < 1 {
		attempts = 1
	}
	return retrier{attempts: attempts, backoff: backoff}
}

// run calls fn until it succeeds, fails with something other than
// ErrConcurrencyConflict, or the attempts are used up.  The returned
// error is already translated.
func (r retrier) run(ctx context.Context, workflow string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := translate(fn(ctx))
		if err == nil || !errors.Is(err, ErrConcurrencyConflict) || attempt >= r.attempts {
			return err
		}
		monitoring.TrackRetry(workflow)
		t := time.NewTimer(time.Duration(attempt) * r.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
