package fulfillment

import (
	"errors"
	"fmt"
)

// Terminal error kinds for a single availability lookup. Callers match them
// with errors.Is to decide exit codes.
var (
	// ErrInvalidQuery means the query could not produce a valid upstream request.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUpstreamRejected means the endpoint answered with a 4xx status.
	// Rejections are never retried.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrUpstreamUnavailable means every attempt failed with a network error
	// or a 5xx status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse means the endpoint answered 2xx but the body was
	// not the expected fulfillment payload.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// RejectedError carries the status code behind an ErrUpstreamRejected.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("upstream rejected request: status %d: %s", e.Status, e.Body)
}

func (e *RejectedError) Is(target error) bool { return target == ErrUpstreamRejected }
