package inference

import (
	"fmt"
	"math"
)

// Predictor evaluates one input vector.
type Predictor interface {
	// Name is reported as the model in every Result.
	Name() string
	Predict(input []float64) (float64, error)
}

// Sine predicts sin(x) for a single input.
type Sine struct{}

// Name returns "sine".
func (Sine) Name() string { return "sine" }

// Predict returns sin(input[0]).
func (Sine) Predict(input []float64) (float64, error) {
	if len(input) != 1 {
		return 0, fmt.Errorf("%w: sine takes 1 value, got %d", ErrInputSize, len(input))
	}
	return math.Sin(input[0]), nil
}

// Nearest is a 1-nearest-neighbour classifier. It predicts the expected
// value of the reference row closest to the input by Euclidean distance.
type Nearest struct {
	name      string
	reference []Sample
	width     int
}

// NewNearest builds a classifier over reference. Every row must have the
// same input width.
func NewNearest(name string, reference []Sample) (*Nearest, error) {
	if len(reference) == 0 {
		return nil, fmt.Errorf("%w: nearest needs reference rows", ErrEmptyDataset)
	}
	width := len(reference[0].Input)
	for i, row := range reference {
		if len(row.Input) != width {
			return nil, fmt.Errorf("%w: reference row %d has %d values, want %d",
				ErrInputSize, i, len(row.Input), width)
		}
	}
	if name == "" {
		name = "nearest"
	}
	return &Nearest{name: name, reference: reference, width: width}, nil
}

// Name returns the dataset name the classifier was built for.
func (n *Nearest) Name() string { return n.name }

// Predict returns the label of the closest reference row. Ties go to the
// earlier row.
func (n *Nearest) Predict(input []float64) (float64, error) {
	if len(input) != n.width {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), n.width)
	}

	best := math.Inf(1)
	var label float64
	for _, row := range n.reference {
		var d float64
		for i, v := range row.Input {
			diff := v - input[i]
			d += diff * diff
		}
		if d < best {
			best = d
			label = row.Expected
		}
	}
	return label, nil
}

// NewPredictor returns the predictor for model. The dataset supplies the
// reference rows and name for nearest.
func NewPredictor(model string, ds *Dataset) (Predictor, error) {
	switch model {
	case "sine":
		return Sine{}, nil
	case "nearest":
		if ds == nil {
			return nil, fmt.Errorf("%w: nearest needs a dataset", ErrEmptyDataset)
		}
		return NewNearest(ds.Name, ds.Reference)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
}
