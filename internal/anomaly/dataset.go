package anomaly

import (
	"math"
	"math/rand"
)

// Synthetic dataset shape: 200 samples, 80% legitimate / 20% suspicious.
const (
	DatasetSize        = 200
	legitimateFraction = 0.8
)

// LabeledSample is one synthetic training row with its ground-truth label.
type LabeledSample struct {
	Features []float64
	Anomaly  bool
}

// SyntheticDataset generates the labeled training set the shipped model is
// fit on. Legitimate batches have reputable manufacturers, comfortable
// expiry margins and modest scan activity; suspicious batches mix low
// reputation, near/past expiry and hot scanning patterns. Deterministic for
// a given seed.
func SyntheticDataset(n int, seed int64) []LabeledSample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]LabeledSample, 0, n)

	legit := int(float64(n) * legitimateFraction)
	for i := 0; i < legit; i++ {
		score := clamp(rng.NormFloat64()*1.2+8.5, 5, 10)
		days := math.Min(rng.ExpFloat64()*180+30, 1095)
		scans := float64(poisson(rng, 3) + 1)
		locations := math.Min(scans, float64(poisson(rng, 2)+1))

		samples = append(samples, LabeledSample{
			Features: []float64{
				score,
				days,
				scans,
				locations,
				uniform(rng, 30, 365),  // batch age days
				uniform(rng, 0.7, 1.0), // verification ratio
			},
		})
	}

	for i := legit; i < n; i++ {
		// Baseline, then inject one suspicious pattern
		score := rng.NormFloat64()*1 + 8
		days := uniform(rng, 30, 200)
		switch r := rng.Float64(); {
		case r < 0.3:
			score = uniform(rng, 2, 5) // disreputable manufacturer
		case r < 0.5:
			days = uniform(rng, -30, 15) // expired or nearly so
		}

		scans := float64(poisson(rng, 8) + 5) // hot scanning
		locations := math.Min(scans, float64(poisson(rng, 4)+2))

		samples = append(samples, LabeledSample{
			Features: []float64{
				score,
				days,
				scans,
				locations,
				uniform(rng, 1, 730),
				uniform(rng, 0.2, 0.8), // low verification success
			},
			Anomaly: true,
		})
	}

	return samples
}

// Features extracts just the feature matrix from labeled samples.
func Features(samples []LabeledSample) [][]float64 {
	out := make([][]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Features
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// poisson draws from Poisson(lambda) via Knuth's method; fine for the small
// rates used here.
func poisson(rng *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
