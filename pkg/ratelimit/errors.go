package ratelimit

import (
	"errors"
	"fmt"
)

// ErrIdentityMissing is returned when a check is attempted without a usable
// AppIdentity. Callers must treat it as a server configuration error and
// reject the request; it never means "allowed".
var ErrIdentityMissing = errors.New("rate limit identity missing")

// ExceededError reports that a request was rejected by the limiter.
// It carries the decision so callers can build Retry-After responses.
type ExceededError struct {
	Decision *Decision
}

func (e *ExceededError) Error() string {
	if e.Decision == nil {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for %s (retry after %ds)", e.Decision.Key, e.Decision.RetryAfterSeconds())
}

// IsExceeded reports whether err is a rate limit rejection.
func IsExceeded(err error) bool {
	var exceeded *ExceededError
	return errors.As(err, &exceeded)
}
