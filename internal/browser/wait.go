package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrPollTimeout is returned by Poll when the condition never held within the timeout
var ErrPollTimeout = errors.New("condition not met before timeout")

var errNotReady = errors.New("not ready")

// Condition reports whether the awaited state has been reached.
// A non-nil error aborts polling immediately.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it holds, backing off exponentially from interval
// between attempts, and gives up once timeout elapses.
func Poll(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = max(interval, timeout/4)
	b.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		ok, err := cond(pollCtx)
		switch {
		case err != nil && pollCtx.Err() != nil:
			// the driver surfaced our own deadline
			return errNotReady
		case err != nil:
			return backoff.Permanent(err)
		case !ok:
			return errNotReady
		}
		return nil
	}, backoff.WithContext(b, pollCtx))

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, errNotReady) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s (%d attempts)", ErrPollTimeout, timeout, attempts)
	}
	return err
}
