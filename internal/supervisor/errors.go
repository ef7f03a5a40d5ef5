package supervisor

import "errors"

var (
	// ErrMissingLink is returned by New when no Link is provided.
	ErrMissingLink = errors.New("supervisor: link is required")

	// ErrMissingBroker is returned by New when no Broker is provided.
	ErrMissingBroker = errors.New("supervisor: broker is required")
)
