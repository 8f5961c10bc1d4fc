package anomaly

import (
	"math"
	"testing"
)

// gridSamples builds a clustered 2D dataset with a single far outlier at
// the end, useful for checking that isolation actually isolates.
func gridSamples(n int) [][]float64 {
	samples := make([][]float64, 0, n)
	for i := 0; i < n-1; i++ {
		samples = append(samples, []float64{
			float64(i%8) * 0.1,
			float64(i/8) * 0.1,
		})
	}
	samples = append(samples, []float64{100, -100})
	return samples
}

func TestFitRejectsBadOptions(t *testing.T) {
	samples := gridSamples(16)

	if _, err := Fit(samples[:1], DefaultFitOptions()); err == nil {
		t.Error("expected error for too few samples")
	}
	if _, err := Fit(samples, FitOptions{Trees: 0, Contamination: 0.1}); err == nil {
		t.Error("expected error for zero trees")
	}
	if _, err := Fit(samples, FitOptions{Trees: 10, Contamination: 0.6}); err == nil {
		t.Error("expected error for contamination >= 0.5")
	}
	if _, err := Fit([][]float64{{1, 2}, {1}}, FitOptions{Trees: 10, Contamination: 0.1}); err == nil {
		t.Error("expected error for ragged samples")
	}
}

func TestFitIsDeterministic(t *testing.T) {
	samples := gridSamples(100)
	opts := FitOptions{Trees: 20, Contamination: 0.1, Seed: 42}

	a, err := Fit(samples, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := Fit(samples, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	if a.Forest.Offset != b.Forest.Offset {
		t.Errorf("same seed produced different offsets: %f vs %f", a.Forest.Offset, b.Forest.Offset)
	}
	probe := a.Scaler.transform([]float64{0.35, 0.35})
	if a.Forest.decisionFunction(probe) != b.Forest.decisionFunction(probe) {
		t.Error("same seed produced different decision functions")
	}
}

func TestFitFlagsTheOutlier(t *testing.T) {
	samples := gridSamples(128)
	model, err := Fit(samples, FitOptions{Trees: 50, Contamination: 0.05, Seed: 7})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	outlier := model.Scaler.transform([]float64{100, -100})
	inlier := model.Scaler.transform([]float64{0.3, 0.3})

	if d := model.Forest.decisionFunction(outlier); d >= 0 {
		t.Errorf("far outlier not flagged: decision %f", d)
	}
	if do, di := model.Forest.decisionFunction(outlier), model.Forest.decisionFunction(inlier); do >= di {
		t.Errorf("outlier should score below inlier: %f vs %f", do, di)
	}
}

func TestFitContaminationCalibration(t *testing.T) {
	// By construction the offset is the contamination-quantile of training
	// scores, so roughly that fraction of the training set is flagged.
	features := Features(SyntheticDataset(DatasetSize, DefaultSeed))

	model, err := Fit(features, DefaultFitOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	flagged := 0
	for _, f := range features {
		if model.Forest.decisionFunction(model.Scaler.transform(f)) < 0 {
			flagged++
		}
	}

	frac := float64(flagged) / float64(len(features))
	if math.Abs(frac-DefaultContamination) > 0.05 {
		t.Errorf("flagged fraction %f too far from contamination %f", frac, DefaultContamination)
	}
}

func TestFitScalerZeroVariance(t *testing.T) {
	samples := [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}}
	model, err := Fit(samples, FitOptions{Trees: 5, Contamination: 0.25, Seed: 1})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if model.Scaler.Scale[1] != 1 {
		t.Errorf("constant feature should get scale 1, got %f", model.Scaler.Scale[1])
	}
	// Transform stays finite
	for _, v := range model.Scaler.transform([]float64{2, 5}) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite transformed value %f", v)
		}
	}
}

func TestScorerNeutralOnNilModel(t *testing.T) {
	s := NewScorer(nil)
	if s.Loaded() {
		t.Error("nil model must not report loaded")
	}
	r := s.Score(FeatureVector{ManufacturerScore: 5})
	if !r.Neutral || r.Anomalous || r.Confidence != 0.5 {
		t.Errorf("unexpected neutral result: %+v", r)
	}
}

func TestScorerRecoversFromBrokenModel(t *testing.T) {
	// A model with an empty tree panics in pathLength; Score must degrade
	// to neutral instead of crashing the request.
	broken := &Model{
		Version:  ModelVersion,
		Features: FeatureNames,
		Scaler:   Scaler{Mean: make([]float64, 6), Scale: []float64{1, 1, 1, 1, 1, 1}},
		Forest:   Forest{SubsampleSize: 4, Trees: [][]Node{{}}},
	}
	r := NewScorer(broken).Score(FeatureVector{})
	if !r.Neutral {
		t.Errorf("expected neutral fallback, got %+v", r)
	}
}

func TestConfidenceFromScore(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{0, 0.5},
		{-0.5, 0.75},
		{0.5, 0.25},
		{-2, 0.9},  // clamped high
		{2, 0.1},   // clamped low
		{-0.8, 0.9},
	}
	for _, c := range cases {
		if got := confidenceFromScore(c.raw); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("confidenceFromScore(%f) = %f, want %f", c.raw, got, c.want)
		}
	}
}
