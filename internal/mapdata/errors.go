package mapdata

import (
	"errors"
	"fmt"
)

// Validation errors raised before any network I/O.
var (
	// ErrInvalidCoordinate indicates the query origin is out of range.
	ErrInvalidCoordinate = errors.New("invalid query coordinate")

	// ErrMissingBaseURL indicates the service was constructed without an
	// upstream base URL.
	ErrMissingBaseURL = errors.New("upstream base URL is required")
)

// UpstreamError is returned for any non-2xx upstream response. It carries the
// status code and the response body text so callers can map it to a
// user-facing message.
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     string
}

// Error formats as "<Endpoint> Error <status>: <body>".
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s Error %d: %s", e.Endpoint, e.Status, e.Body)
}

// IsUpstreamError reports whether err wraps an UpstreamError and returns it.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
