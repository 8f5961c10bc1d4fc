package anomaly

import (
	"testing"
)

func TestSyntheticDatasetShape(t *testing.T) {
	samples := SyntheticDataset(DatasetSize, DefaultSeed)

	if len(samples) != DatasetSize {
		t.Fatalf("expected %d samples, got %d", DatasetSize, len(samples))
	}

	anomalies := 0
	for i, s := range samples {
		if len(s.Features) != len(FeatureNames) {
			t.Fatalf("sample %d has %d features, want %d", i, len(s.Features), len(FeatureNames))
		}
		if s.Anomaly {
			anomalies++
		}
	}

	// 80/20 split by construction
	if want := DatasetSize / 5; anomalies != want {
		t.Errorf("expected %d anomalous samples, got %d", want, anomalies)
	}
}

func TestSyntheticDatasetDeterministic(t *testing.T) {
	a := SyntheticDataset(100, 7)
	b := SyntheticDataset(100, 7)

	for i := range a {
		if a[i].Anomaly != b[i].Anomaly {
			t.Fatalf("sample %d label differs across runs", i)
		}
		for j := range a[i].Features {
			if a[i].Features[j] != b[i].Features[j] {
				t.Fatalf("sample %d feature %d differs across runs", i, j)
			}
		}
	}

	c := SyntheticDataset(100, 8)
	same := true
	for i := range a {
		for j := range a[i].Features {
			if a[i].Features[j] != c[i].Features[j] {
				same = false
			}
		}
	}
	if same {
		t.Error("different seeds produced identical datasets")
	}
}

func TestSyntheticDatasetRanges(t *testing.T) {
	for _, s := range SyntheticDataset(500, 3) {
		if score := s.Features[0]; !s.Anomaly && (score < 5 || score > 10) {
			t.Fatalf("legitimate manufacturer score %f out of [5, 10]", score)
		}
		if scans := s.Features[2]; scans < 1 {
			t.Fatalf("scan count %f below 1", scans)
		}
		if locs := s.Features[3]; locs < 1 {
			t.Fatalf("distinct locations %f below 1", locs)
		}
		if ratio := s.Features[5]; ratio < 0 || ratio > 1 {
			t.Fatalf("verification ratio %f out of [0, 1]", ratio)
		}
	}
}

func TestFeatureVectorRoundtrip(t *testing.T) {
	v := FeatureVector{
		ManufacturerScore: 8.5,
		DaysToExpiry:      120,
		ScanCount:         3,
		DistinctLocations: 2,
		BatchAgeDays:      180,
		VerificationRatio: 0.8,
	}
	got := FeatureVectorFromSlice(v.values())
	if got != v {
		t.Errorf("roundtrip mismatch: %+v vs %+v", got, v)
	}
}
