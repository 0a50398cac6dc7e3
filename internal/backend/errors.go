package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError reports a failed backend call. StatusCode is zero when the
// request never produced a response (network failure, cancellation).
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("backend: %s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("backend: %s: %d %s: %v", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend: %s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("backend: %s failed", e.Op)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the backend could not be contacted at all.
func (e *APIError) Unreachable() bool {
	return e.StatusCode == 0 && !errors.Is(e.Err, context.Canceled)
}

// IsUnreachable reports whether err is an APIError for a backend that never answered.
func IsUnreachable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unreachable()
}
