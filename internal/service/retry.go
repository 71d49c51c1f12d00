package service

import (
	"context"
	"time"
)

const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// retryRead runs an idempotent read, retrying store failures with
// exponential backoff.  Errors that are not store failures are returned
// at once.  Mutations must not go through here.
func retryRead[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	backoff := readBackoff
	var (
		out T
		err error
	)
	for attempt := 1; ; attempt++ {
		out, err = fn(ctx)
		err = storeErr(err)
		if err == nil || !retryable(err) || attempt == readAttempts {
			return out, err
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return out, err
		case <-t.C:
		}
		backoff *= 2
	}
}
