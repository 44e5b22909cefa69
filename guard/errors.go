package guard

import (
	"errors"
	"fmt"
)

// UnsafeURLError is the single failure kind the guard produces. Every
// rejection, from a bad scheme to an exhausted redirect budget, carries
// a human-readable Reason. Callers must treat it as non-retryable.
type UnsafeURLError struct {
	URL    string
	Reason string
}

func (e *UnsafeURLError) Error() string {
	return fmt.Sprintf("unsafe remote url %q: %s", e.URL, e.Reason)
}

func unsafeURL(url, reason string) *UnsafeURLError {
	return &UnsafeURLError{URL: url, Reason: reason}
}

// IsUnsafeURL reports whether err is (or wraps) an UnsafeURLError.
func IsUnsafeURL(err error) bool {
	var ue *UnsafeURLError
	return errors.As(err, &ue)
}
