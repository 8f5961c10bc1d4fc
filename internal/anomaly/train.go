package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Training defaults. These mirror the parameters the shipped model was
// calibrated with; cmd/train exposes them as flags.
const (
	DefaultTrees         = 100
	DefaultContamination = 0.2
	DefaultSeed          = 42
	maxSubsample         = 256
)

// FitOptions configures offline training.
type FitOptions struct {
	Trees         int     // ensemble size
	Contamination float64 // expected fraction of anomalous training samples
	Seed          int64   // RNG seed for reproducibility
}

// DefaultFitOptions returns the training configuration of record.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Trees:         DefaultTrees,
		Contamination: DefaultContamination,
		Seed:          DefaultSeed,
	}
}

// Fit trains the scaler and isolation forest on the given samples and
// calibrates the decision offset to the contamination rate.
func Fit(samples [][]float64, opts FitOptions) (*Model, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	if opts.Trees <= 0 {
		return nil, fmt.Errorf("ensemble size must be positive")
	}
	if opts.Contamination <= 0 || opts.Contamination >= 0.5 {
		return nil, fmt.Errorf("contamination must be in (0, 0.5)")
	}
	dim := len(samples[0])
	for _, s := range samples {
		if len(s) != dim {
			return nil, fmt.Errorf("inconsistent sample dimensions")
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	scaler := fitScaler(samples)
	scaled := make([][]float64, len(samples))
	for i, s := range samples {
		scaled[i] = scaler.transform(s)
	}

	subsample := len(scaled)
	if subsample > maxSubsample {
		subsample = maxSubsample
	}

	forest := Forest{SubsampleSize: subsample}
	maxDepth := int(math.Ceil(math.Log2(float64(subsample))))
	for t := 0; t < opts.Trees; t++ {
		sub := sampleWithoutReplacement(scaled, subsample, rng)
		forest.Trees = append(forest.Trees, buildTree(sub, maxDepth, rng))
	}

	// Calibrate: offset is the contamination-quantile of training scores,
	// so that fraction of the training data sits below the boundary.
	scores := make([]float64, len(scaled))
	for i, s := range scaled {
		scores[i] = forest.scoreSamples(s)
	}
	forest.Offset = percentile(scores, opts.Contamination*100)

	model := &Model{
		Version:  ModelVersion,
		Features: FeatureNames,
		Scaler:   scaler,
		Forest:   forest,
	}
	if len(samples[0]) != len(FeatureNames) {
		// Allow fitting on arbitrary-width data in tests
		model.Features = make([]string, dim)
		for i := range model.Features {
			model.Features[i] = fmt.Sprintf("f%d", i)
		}
	}
	return model, nil
}

// fitScaler computes per-feature mean and population standard deviation.
// Zero-variance features get scale 1 so transform stays finite.
func fitScaler(samples [][]float64) Scaler {
	dim := len(samples[0])
	n := float64(len(samples))

	mean := make([]float64, dim)
	for _, s := range samples {
		for j, v := range s {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, dim)
	for _, s := range samples {
		for j, v := range s {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	return Scaler{Mean: mean, Scale: scale}
}

func sampleWithoutReplacement(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	idx := rng.Perm(len(data))[:k]
	out := make([][]float64, k)
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}

// buildTree grows one isolation tree: random feature, random split point
// between the feature's min and max, until depth limit or isolation.
func buildTree(data [][]float64, maxDepth int, rng *rand.Rand) []Node {
	var nodes []Node
	grow(&nodes, data, 0, maxDepth, rng)
	return nodes
}

func grow(nodes *[]Node, data [][]float64, depth, maxDepth int, rng *rand.Rand) int {
	self := len(*nodes)
	*nodes = append(*nodes, Node{Left: -1, Right: -1, Size: len(data)})

	if depth >= maxDepth || len(data) <= 1 {
		return self
	}

	dim := len(data[0])
	feature, lo, hi := -1, 0.0, 0.0
	// Pick a random feature with spread; give up after a few tries if the
	// remaining points are identical.
	for try := 0; try < dim; try++ {
		f := rng.Intn(dim)
		mn, mx := data[0][f], data[0][f]
		for _, row := range data[1:] {
			if row[f] < mn {
				mn = row[f]
			}
			if row[f] > mx {
				mx = row[f]
			}
		}
		if mx > mn {
			feature, lo, hi = f, mn, mx
			break
		}
	}
	if feature == -1 {
		return self
	}

	threshold := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	l := grow(nodes, left, depth+1, maxDepth, rng)
	r := grow(nodes, right, depth+1, maxDepth, rng)
	(*nodes)[self].Feature = feature
	(*nodes)[self].Threshold = threshold
	(*nodes)[self].Left = l
	(*nodes)[self].Right = r
	return self
}

// percentile computes the p-th percentile with linear interpolation.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
