package inference

import "errors"

var (
	// ErrEmptyDataset indicates a dataset with no samples.
	ErrEmptyDataset = errors.New("inference: dataset has no samples")

	// ErrInputSize indicates an input vector of the wrong length.
	ErrInputSize = errors.New("inference: input size mismatch")

	// ErrUnknownModel indicates a model name with no predictor.
	ErrUnknownModel = errors.New("inference: unknown model")

	// ErrMissingPredictor indicates a runner built without a predictor.
	ErrMissingPredictor = errors.New("inference: predictor is required")
)
