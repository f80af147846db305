package inference

import (
	"context"
	"errors"
)

// ErrTransient marks failures worth retrying with backoff: timeouts, rate
// limits, and upstream 5xx responses.
var ErrTransient = errors.New("transient inference failure")

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
