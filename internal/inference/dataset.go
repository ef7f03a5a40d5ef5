package inference

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Sample is one input vector and the value it should evaluate to.
type Sample struct {
	Input    []float64 `yaml:"input"`
	Expected float64   `yaml:"expected"`
}

// Dataset is the evaluation input for a Runner.
type Dataset struct {
	// Name labels the model for classifiers built from this dataset.
	Name string `yaml:"name"`

	// Samples are evaluated in order, wrapping around at the end.
	Samples []Sample `yaml:"samples"`

	// Reference rows back the nearest predictor.
	Reference []Sample `yaml:"reference"`
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}
	return &ds, nil
}

// SineDataset returns n points x = 3.14*i/n over [0, pi) with sin(x) as the
// expected value.
func SineDataset(n int) *Dataset {
	if n < 1 {
		n = 1
	}
	ds := &Dataset{Name: "sine", Samples: make([]Sample, n)}
	for i := range n {
		x := 3.14 * float64(i) / float64(n)
		ds.Samples[i] = Sample{Input: []float64{x}, Expected: math.Sin(x)}
	}
	return ds
}
