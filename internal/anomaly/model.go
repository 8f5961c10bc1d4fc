package anomaly

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// ModelVersion is bumped when the serialized format changes.
const ModelVersion = 1

// Model is the fitted scorer state: standardization parameters plus an
// isolation forest calibrated to a training-time contamination rate.
// Immutable after load.
type Model struct {
	Version  int      `json:"version"`
	Features []string `json:"features"`
	Scaler   Scaler   `json:"scaler"`
	Forest   Forest   `json:"forest"`
}

// Scaler holds per-feature mean and scale for standardization.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// transform standardizes a feature vector in model order.
func (sc Scaler) transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = (x[i] - sc.Mean[i]) / sc.Scale[i]
	}
	return out
}

// Forest is a fitted isolation forest.
//
// Offset is the decision boundary: the contamination-quantile of the
// training scores. decisionFunction(x) < 0 classifies x as an outlier.
type Forest struct {
	SubsampleSize int      `json:"subsample_size"`
	Offset        float64  `json:"offset"`
	Trees         [][]Node `json:"trees"`
}

// Node is one node of an isolation tree, stored as a flat array with child
// indexes. Leaves have Left == -1 and carry the training sample count.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Size      int     `json:"s"`
}

// pathLength returns the isolation depth of x in one tree, with the usual
// average-path adjustment for unsplit leaves.
func pathLength(tree []Node, x []float64) float64 {
	depth := 0.0
	i := 0
	for tree[i].Left != -1 {
		if x[tree[i].Feature] < tree[i].Threshold {
			i = tree[i].Left
		} else {
			i = tree[i].Right
		}
		depth++
	}
	return depth + averagePathLength(tree[i].Size)
}

// averagePathLength is c(n): the expected path length of an unsuccessful
// BST search among n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

const eulerGamma = 0.5772156649015329

// scoreSamples returns the negated anomaly score in [-1, 0]; lower means
// more anomalous.
func (f Forest) scoreSamples(x []float64) float64 {
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, x)
	}
	mean := total / float64(len(f.Trees))
	return -math.Pow(2, -mean/averagePathLength(f.SubsampleSize))
}

// decisionFunction shifts scoreSamples by the fitted offset so that
// negative values are outliers under the training contamination rate.
func (f Forest) decisionFunction(x []float64) float64 {
	return f.scoreSamples(x) - f.Offset
}

// validate checks structural consistency of a loaded model.
func (m *Model) validate() error {
	if m.Version != ModelVersion {
		return fmt.Errorf("unsupported model version %d", m.Version)
	}
	n := len(m.Features)
	if n == 0 {
		return fmt.Errorf("model has no features")
	}
	if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return fmt.Errorf("scaler dimensions do not match %d features", n)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler scale for feature %d is zero", i)
		}
	}
	if len(m.Forest.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if m.Forest.SubsampleSize < 2 {
		return fmt.Errorf("invalid subsample size %d", m.Forest.SubsampleSize)
	}
	return nil
}

// Load reads a fitted model from a JSON file.
// A missing file returns (nil, nil): the caller runs with neutral scoring.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model file: %w", err)
	}
	return &m, nil
}

// Save writes the model as JSON to path, creating parent directories.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}
