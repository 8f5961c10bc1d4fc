// Package anomaly scores medicine batch feature vectors for counterfeit risk.
//
// The scorer wraps a pre-fit isolation forest plus per-feature
// standardization parameters. The model is fit offline (cmd/train) on a
// synthetic dataset and loaded once at process start; scoring is pure
// computation on immutable state and safe for concurrent use.
package anomaly

// FeatureVector holds the six features scored per verification.
// Constructed per call, never persisted.
type FeatureVector struct {
	ManufacturerScore float64
	DaysToExpiry      float64 // may be negative
	ScanCount         float64 // includes the current scan
	DistinctLocations float64
	BatchAgeDays      float64
	VerificationRatio float64
}

// values returns the features in model order.
func (v FeatureVector) values() []float64 {
	return []float64{
		v.ManufacturerScore,
		v.DaysToExpiry,
		v.ScanCount,
		v.DistinctLocations,
		v.BatchAgeDays,
		v.VerificationRatio,
	}
}

// FeatureVectorFromSlice builds a FeatureVector from values in model order.
// Used by the training command to score raw dataset rows.
func FeatureVectorFromSlice(values []float64) FeatureVector {
	var v FeatureVector
	if len(values) != 6 {
		return v
	}
	v.ManufacturerScore = values[0]
	v.DaysToExpiry = values[1]
	v.ScanCount = values[2]
	v.DistinctLocations = values[3]
	v.BatchAgeDays = values[4]
	v.VerificationRatio = values[5]
	return v
}

// FeatureNames lists the features in model order. Stored in the model file
// so a mismatched artifact is detectable.
var FeatureNames = []string{
	"manufacturer_score",
	"days_to_expiry",
	"scan_count",
	"distinct_locations",
	"batch_age_days",
	"verification_ratio",
}

// Result is the outcome of scoring one feature vector.
//
// Neutral distinguishes "no model loaded / scoring failed, default used"
// from a genuine not-anomalous verdict, so callers can observe fallback
// without changing control flow.
type Result struct {
	Anomalous  bool
	Confidence float64 // [0.1, 0.9] when scored; 0.5 when neutral
	Neutral    bool
	RawScore   float64 // decision-function value; 0 when neutral
}

// neutralResult is returned whenever scoring cannot run. It never blocks
// verification and never classifies a batch as suspicious.
func neutralResult() Result {
	return Result{Anomalous: false, Confidence: 0.5, Neutral: true}
}

// Scorer evaluates feature vectors against a fitted model.
// A Scorer with a nil model always returns the neutral result.
type Scorer struct {
	model *Model
}

// NewScorer creates a scorer. model may be nil (neutral scoring).
func NewScorer(model *Model) *Scorer {
	return &Scorer{model: model}
}

// Loaded reports whether a fitted model is available.
func (s *Scorer) Loaded() bool {
	return s != nil && s.model != nil
}

// Score evaluates a feature vector. It never returns an error: any internal
// failure degrades to the neutral result.
func (s *Scorer) Score(v FeatureVector) (result Result) {
	if !s.Loaded() {
		return neutralResult()
	}

	defer func() {
		if recover() != nil {
			result = neutralResult()
		}
	}()

	scaled := s.model.Scaler.transform(v.values())
	raw := s.model.Forest.decisionFunction(scaled)

	return Result{
		Anomalous:  raw < 0,
		Confidence: confidenceFromScore(raw),
		RawScore:   raw,
	}
}

// confidenceFromScore remaps a raw decision-function value (typically in
// [-0.5, 0.5]) into a [0.1, 0.9] confidence, clamped at the bounds.
func confidenceFromScore(raw float64) float64 {
	c := (1 - raw) / 2
	if c < 0.1 {
		return 0.1
	}
	if c > 0.9 {
		return 0.9
	}
	return c
}
