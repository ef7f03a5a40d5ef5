package inference

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSine_Predict(t *testing.T) {
	got, err := Sine{}.Predict([]float64{math.Pi / 2})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("Predict(pi/2) = %v, want 1", got)
	}

	if _, err := (Sine{}).Predict([]float64{1, 2}); !errors.Is(err, ErrInputSize) {
		t.Errorf("Predict() with 2 values error = %v, want ErrInputSize", err)
	}
}

func TestSineDataset(t *testing.T) {
	ds := SineDataset(10)
	if len(ds.Samples) != 10 {
		t.Fatalf("len(Samples) = %d, want 10", len(ds.Samples))
	}
	if ds.Samples[0].Input[0] != 0 {
		t.Errorf("first x = %v, want 0", ds.Samples[0].Input[0])
	}
	if x := ds.Samples[5].Input[0]; math.Abs(x-1.57) > 1e-9 {
		t.Errorf("x[5] = %v, want 1.57", x)
	}
	if got := SineDataset(0); len(got.Samples) != 1 {
		t.Errorf("SineDataset(0) has %d samples, want 1", len(got.Samples))
	}
}

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(filepath.Join("testdata", "wine.yaml"))
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if ds.Name != "wine" || len(ds.Samples) != 3 || len(ds.Reference) != 3 {
		t.Errorf("dataset = %+v", ds)
	}
}

func TestLoadDataset_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("name: nothing\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("samples: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDataset(empty); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("empty dataset error = %v, want ErrEmptyDataset", err)
	}
	if _, err := LoadDataset(broken); err == nil {
		t.Error("broken dataset loaded without error")
	}
	if _, err := LoadDataset(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing dataset loaded without error")
	}
}

func TestNearest_ClassifiesSamples(t *testing.T) {
	ds, err := LoadDataset(filepath.Join("testdata", "wine.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPredictor("nearest", ds)
	if err != nil {
		t.Fatalf("NewPredictor() error = %v", err)
	}
	if p.Name() != "wine" {
		t.Errorf("Name() = %q, want wine", p.Name())
	}

	for i, s := range ds.Samples {
		got, err := p.Predict(s.Input)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if got != s.Expected {
			t.Errorf("sample %d: predicted %v, want %v", i, got, s.Expected)
		}
	}

	if _, err := p.Predict([]float64{1}); !errors.Is(err, ErrInputSize) {
		t.Errorf("short input error = %v, want ErrInputSize", err)
	}
}

func TestNewNearest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		rows    []Sample
		wantErr error
	}{
		{"no rows", nil, ErrEmptyDataset},
		{"ragged rows", []Sample{{Input: []float64{1, 2}}, {Input: []float64{1}}}, ErrInputSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewNearest("x", tt.rows); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewNearest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	n, err := NewNearest("", []Sample{{Input: []float64{0}, Expected: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if n.Name() != "nearest" {
		t.Errorf("default name = %q", n.Name())
	}
}

func TestNewPredictor_Unknown(t *testing.T) {
	if _, err := NewPredictor("resnet", nil); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("error = %v, want ErrUnknownModel", err)
	}
	if _, err := NewPredictor("nearest", nil); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("nearest without dataset error = %v, want ErrEmptyDataset", err)
	}
}

func TestResult_JSON(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "without timestamp",
			res:  Result{Board: "esp8266", Model: "wine", Result: 1, Iteration: 1, Microseconds: 120},
			want: `{"board":"esp8266","model":"wine","result":1,"iteration":1,"microseconds":120}`,
		},
		{
			name: "with timestamp",
			res:  Result{Board: "esp32dev", Model: "sine", Result: 0.5, Iteration: 7, Microseconds: 3, Timestamp: 1700000000000},
			want: `{"board":"esp32dev","model":"sine","result":0.5,"iteration":7,"microseconds":3,"timestamp":1700000000000}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.res.Marshal()
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
			back, err := ParseResult(got)
			if err != nil || back != tt.res {
				t.Errorf("ParseResult() = %+v, %v", back, err)
			}
		})
	}
}
