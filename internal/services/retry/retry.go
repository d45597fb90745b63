package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mediasift/internal/logging"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// ServiceError reports exhaustion of all retry attempts for an operation.
type ServiceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-transient so Do stops retrying immediately.
// Use it for malformed input and other failures that cannot succeed on retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the Permanent marker.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

// Options controls retry behavior.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
	// Sleeper overrides how delays are performed (useful for tests).
	Sleeper func(time.Duration)
}

func (o Options) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return o.MaxAttempts
}

func (o Options) baseDelay() time.Duration {
	if o.BaseDelay < 0 {
		return 0
	}
	if o.BaseDelay == 0 {
		return defaultBaseDelay
	}
	return o.BaseDelay
}

// Do invokes fn up to MaxAttempts times, sleeping base*attempt between
// attempts. A Permanent error or context cancellation stops the loop at once;
// exhaustion returns a *ServiceError wrapping the last cause.
func Do(ctx context.Context, op string, fn func(context.Context) error, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	attempts := opts.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		logger.Warn("attempt failed",
			logging.String(logging.FieldEventType, "retry_attempt_failed"),
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
		)

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, opts, opts.baseDelay()*time.Duration(attempt)); err != nil {
			return err
		}
	}

	return &ServiceError{Op: op, Attempts: attempts, Err: lastErr}
}

func sleep(ctx context.Context, opts Options, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if opts.Sleeper != nil {
		opts.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
