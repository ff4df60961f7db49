package retry

import (
	"fmt"
	"time"

	"github.com/user/browserkit/internal/logging"
)

// WithExponentialBackoff executes an operation and retries it on failure with exponential backoff.
func WithExponentialBackoff(operationName string, maxRetries int, operation func() error) error {
	return withBackoff(operationName, maxRetries, time.Second, operation)
}

func withBackoff(operationName string, maxRetries int, delay time.Duration, operation func() error) error {
	var err error

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			logging.Logger.Warnf("%s failed: %v. Retrying in %v (Attempt %d/%d)...", operationName, err, delay, i+1, maxRetries)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operationName, maxRetries, err)
}

// Poll calls check until it reports done, returns an error, or timeout elapses.
// check always runs at least once. The deadline is only checked between calls,
// so a slow check can overrun timeout by its own duration.
func Poll(timeout, interval time.Duration, check func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		done, err := check()
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		time.Sleep(min(interval, remaining))

		if !time.Now().Before(deadline) {
			return false, nil
		}
	}
}
