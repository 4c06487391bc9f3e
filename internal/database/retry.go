package database

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

const maxRetries = 3

// IsTransient reports whether err is a store failure worth retrying:
// connection-level faults, serialization/deadlock aborts, and network
// timeouts. Validation and authorization failures never qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		// Class 08: connection exceptions.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return pgconn.SafeToRetry(err)
}

// Retry runs fn, retrying transient store errors with exponential backoff.
// Non-transient errors and context cancellation stop the retry loop
// immediately. Callers must only pass idempotent operations.
func Retry(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(50*time.Millisecond),
			backoff.WithMaxInterval(time.Second),
		), maxRetries),
		ctx,
	)

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
