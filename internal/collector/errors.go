package collector

import "errors"

var (
	// ErrMalformedResult indicates a payload that is not a valid result.
	ErrMalformedResult = errors.New("collector: malformed result")

	// ErrMalformedStatus indicates a payload that is not a valid node status.
	ErrMalformedStatus = errors.New("collector: malformed node status")

	// ErrMissingStore indicates a collector built without a store.
	ErrMissingStore = errors.New("collector: store is required")
)
