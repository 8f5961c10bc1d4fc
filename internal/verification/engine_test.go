package verification

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pharmatrace/medverify/internal/anomaly"
	"github.com/pharmatrace/medverify/internal/catalog"
	"github.com/pharmatrace/medverify/internal/verifylog"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// scorerWithOffset builds a degenerate single-leaf forest whose decision
// value is exactly -0.5 - offset for every input, so tests can pin the
// scorer to a fixed verdict.
func scorerWithOffset(offset float64) *anomaly.Scorer {
	model := &anomaly.Model{
		Version:  anomaly.ModelVersion,
		Features: anomaly.FeatureNames,
		Scaler: anomaly.Scaler{
			Mean:  make([]float64, 6),
			Scale: []float64{1, 1, 1, 1, 1, 1},
		},
		Forest: anomaly.Forest{
			SubsampleSize: 256,
			Offset:        offset,
			Trees: [][]anomaly.Node{
				{{Feature: 0, Threshold: 0, Left: -1, Right: -1, Size: 256}},
			},
		},
	}
	return anomaly.NewScorer(model)
}

func neutralScorer() *anomaly.Scorer {
	return anomaly.NewScorer(nil)
}

type testEnv struct {
	engine    *Engine
	catalogue *catalog.MemoryStore
	logs      *verifylog.MemoryStore
}

func newTestEnv(t *testing.T, scorer *anomaly.Scorer) *testEnv {
	t.Helper()
	env := &testEnv{
		catalogue: catalog.NewMemoryStore(),
		logs:      verifylog.NewMemoryStore(),
	}
	env.engine = NewEngine(env.catalogue, env.logs, scorer).
		withNow(func() time.Time { return testNow })
	return env
}

func (env *testEnv) addBatch(t *testing.T, b *catalog.Batch) {
	t.Helper()
	if err := env.catalogue.Create(context.Background(), b); err != nil {
		t.Fatalf("create batch: %v", err)
	}
}

func (env *testEnv) logCount(t *testing.T) int {
	t.Helper()
	entries, err := env.logs.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return len(entries)
}

func validBatch(code string) *catalog.Batch {
	return &catalog.Batch{
		BatchCode:         code,
		Name:              "Paracetamol 500mg",
		Manufacturer:      "PharmaCorp",
		ManufacturerScore: 9.5,
		ExpiryDate:        testNow.AddDate(0, 0, 400),
		ManufacturingDate: testNow.AddDate(0, 0, -300),
		Status:            catalog.StatusValid,
	}
}

func TestVerifyUnknownCode(t *testing.T) {
	env := newTestEnv(t, neutralScorer())

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "XYZ999"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusFake {
		t.Errorf("expected fake, got %s", outcome.Status)
	}
	if outcome.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", outcome.Confidence)
	}
	if outcome.BatchInfo != nil {
		t.Error("unknown code must not leak batch info")
	}
	if outcome.Reason != "Batch code not found in official catalogue" {
		t.Errorf("unexpected reason: %q", outcome.Reason)
	}
	if n := env.logCount(t); n != 1 {
		t.Errorf("expected exactly one log entry, got %d", n)
	}
}

func TestVerifyBlankCode(t *testing.T) {
	env := newTestEnv(t, neutralScorer())

	// Empty and whitespace-only codes are normalized to "" and classified
	// through the normal lookup path rather than rejected up front.
	for _, code := range []string{"", "   ", "\t\n"} {
		outcome, err := env.engine.Verify(context.Background(), Request{Code: code})
		if err != nil {
			t.Fatalf("verify %q: %v", code, err)
		}
		if outcome.Status != StatusFake {
			t.Errorf("code %q: expected fake, got %s", code, outcome.Status)
		}
		if outcome.Confidence != 0.95 {
			t.Errorf("code %q: expected confidence 0.95, got %f", code, outcome.Confidence)
		}
	}

	if n := env.logCount(t); n != 3 {
		t.Errorf("expected one log entry per attempt, got %d", n)
	}
}

func TestVerifyValidBatch(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	env.addBatch(t, validBatch("MED123456A"))

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "MED123456A"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusValid {
		t.Fatalf("expected valid, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", outcome.Confidence)
	}
	if !outcome.ScorerNeutral {
		t.Error("neutral scorer should be reported on the outcome")
	}
	if outcome.BatchInfo == nil {
		t.Fatal("valid outcome must carry batch info")
	}
	if outcome.BatchInfo.ScanCount != 1 {
		t.Errorf("batch info should count this scan, got %d", outcome.BatchInfo.ScanCount)
	}
	if !strings.Contains(outcome.Reason, "expires in 400 days") {
		t.Errorf("unexpected reason: %q", outcome.Reason)
	}

	// The stored record was incremented exactly once.
	b, err := env.catalogue.FindByCode(context.Background(), "MED123456A")
	if err != nil {
		t.Fatalf("find batch: %v", err)
	}
	if b.ScanCount != 1 {
		t.Errorf("expected stored scan count 1, got %d", b.ScanCount)
	}
	if n := env.logCount(t); n != 1 {
		t.Errorf("expected exactly one log entry, got %d", n)
	}
}

func TestVerifyNormalizesCode(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	env.addBatch(t, validBatch("MED123456A"))

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "  med123456a "})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Status != StatusValid {
		t.Errorf("lowercase code with whitespace should match, got %s", outcome.Status)
	}

	entries, _ := env.logs.List(context.Background(), 1)
	if entries[0].BatchCode != "MED123456A" {
		t.Errorf("log must record the normalized code, got %q", entries[0].BatchCode)
	}
}

func TestVerifyExpiredBatch(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	b := validBatch("PHR111111B")
	b.ExpiryDate = testNow.AddDate(0, 0, -10)
	env.addBatch(t, b)

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "PHR111111B"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", outcome.Status)
	}
	if outcome.Confidence != 0.99 {
		t.Errorf("expected confidence 0.99, got %f", outcome.Confidence)
	}
	if outcome.Reason != "Medicine expired 10 days ago" {
		t.Errorf("unexpected reason: %q", outcome.Reason)
	}
	if outcome.BatchInfo == nil || outcome.BatchInfo.Name == "" {
		t.Error("expired outcome should still identify the medicine")
	}

	// Expired is terminal: no scan count increment.
	stored, _ := env.catalogue.FindByCode(context.Background(), "PHR111111B")
	if stored.ScanCount != 0 {
		t.Errorf("expired verification must not increment scan count, got %d", stored.ScanCount)
	}
}

func TestVerifyExpiryBeatsKnownFake(t *testing.T) {
	// A catalogued fake that is also expired reports as expired; the expiry
	// check runs first.
	env := newTestEnv(t, neutralScorer())
	b := validBatch("LOT222222C")
	b.Status = catalog.StatusFake
	b.ExpiryDate = testNow.AddDate(0, 0, -3)
	env.addBatch(t, b)

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "LOT222222C"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Status != StatusExpired {
		t.Errorf("expected expired, got %s", outcome.Status)
	}
}

func TestVerifyKnownFake(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	b := validBatch("BTH333333X")
	b.Status = catalog.StatusFake
	env.addBatch(t, b)

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "BTH333333X"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusFake {
		t.Fatalf("expected fake, got %s", outcome.Status)
	}
	if outcome.Confidence != 0.98 {
		t.Errorf("expected confidence 0.98, got %f", outcome.Confidence)
	}
	if outcome.BatchInfo != nil {
		t.Error("known fake must not echo batch info")
	}

	stored, _ := env.catalogue.FindByCode(context.Background(), "BTH333333X")
	if stored.ScanCount != 0 {
		t.Errorf("known fake must not increment scan count, got %d", stored.ScanCount)
	}
}

func TestVerifyMissingExpiryReadsAsExpired(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	b := validBatch("MED999999Z")
	b.ExpiryDate = time.Time{}
	env.addBatch(t, b)

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "MED999999Z"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Status != StatusExpired {
		t.Errorf("missing expiry should classify as expired, got %s", outcome.Status)
	}
	if outcome.Reason != "Medicine expired 999 days ago" {
		t.Errorf("unexpected reason: %q", outcome.Reason)
	}
}

func TestVerifySuspectedCounterfeit(t *testing.T) {
	// Offset 0 pins the decision value at -0.5: anomalous with confidence
	// 0.75, above the suspicion threshold.
	env := newTestEnv(t, scorerWithOffset(0))
	env.addBatch(t, validBatch("MED555555Y"))

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "MED555555Y"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusSuspected {
		t.Fatalf("expected suspected, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", outcome.Confidence)
	}
	if !strings.Contains(outcome.Reason, "75.0%") {
		t.Errorf("reason should carry the confidence percentage: %q", outcome.Reason)
	}
	if outcome.BatchInfo == nil {
		t.Error("suspected outcome should carry batch info")
	}

	// Scan count still incremented: the chain reached the scoring step.
	stored, _ := env.catalogue.FindByCode(context.Background(), "MED555555Y")
	if stored.ScanCount != 1 {
		t.Errorf("expected scan count 1, got %d", stored.ScanCount)
	}
}

func TestVerifyAnomalousBelowThreshold(t *testing.T) {
	// Offset -0.45 gives decision -0.05: anomalous with confidence 0.525,
	// below the suspicion threshold, so the batch stays valid with a
	// degraded confidence.
	env := newTestEnv(t, scorerWithOffset(-0.45))
	env.addBatch(t, validBatch("MED666666A"))

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "MED666666A"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if outcome.Status != StatusValid {
		t.Fatalf("expected valid, got %s", outcome.Status)
	}
	if diff := outcome.Confidence - 0.475; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected degraded confidence 0.475, got %f", outcome.Confidence)
	}
}

func TestVerifyNotAnomalous(t *testing.T) {
	// Offset -0.6 gives decision 0.1: a clean inlier verdict.
	env := newTestEnv(t, scorerWithOffset(-0.6))
	env.addBatch(t, validBatch("MED777777B"))

	outcome, err := env.engine.Verify(context.Background(), Request{Code: "MED777777B"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Status != StatusValid {
		t.Fatalf("expected valid, got %s", outcome.Status)
	}
	if outcome.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", outcome.Confidence)
	}
	if outcome.ScorerNeutral {
		t.Error("a loaded scorer must not report neutral")
	}
}

func TestVerifyNeutralScorerNeverSuspects(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	for i := 0; i < 20; i++ {
		code := fmt.Sprintf("MED%06dA", i)
		env.addBatch(t, validBatch(code))
		outcome, err := env.engine.Verify(context.Background(), Request{Code: code})
		if err != nil {
			t.Fatalf("verify %s: %v", code, err)
		}
		if outcome.Status == StatusSuspected {
			t.Fatalf("neutral scorer classified %s as suspected", code)
		}
	}
}

func TestVerifyRecordsLocation(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	env.addBatch(t, validBatch("MED888888C"))

	lat, lng := 6.5244, 3.3792
	_, err := env.engine.Verify(context.Background(), Request{
		Code: "MED888888C", Lat: &lat, Lng: &lng, ClientIP: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	entries, _ := env.logs.List(context.Background(), 1)
	e := entries[0]
	if e.Location == nil {
		t.Fatal("expected location on log entry")
	}
	if e.Location.Lat != lat || e.Location.Lng != lng {
		t.Errorf("location mismatch: %+v", e.Location)
	}
	if e.ClientIP != "203.0.113.7" {
		t.Errorf("client ip mismatch: %q", e.ClientIP)
	}
}

func TestVerifyRejectsPartialCoordinates(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	env.addBatch(t, validBatch("MED121212D"))

	lat := 6.5244
	_, err := env.engine.Verify(context.Background(), Request{Code: "MED121212D", Lat: &lat})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	entries, _ := env.logs.List(context.Background(), 1)
	if entries[0].Location != nil {
		t.Error("lat without lng must not be recorded")
	}
}

type capturingEmitter struct {
	events []map[string]interface{}
}

func (c *capturingEmitter) EmitVerification(event map[string]interface{}) {
	c.events = append(c.events, event)
}

func TestVerifyEmitsEvent(t *testing.T) {
	env := newTestEnv(t, neutralScorer())
	emitter := &capturingEmitter{}
	env.engine.WithEvents(emitter)

	_, err := env.engine.Verify(context.Background(), Request{Code: "NOPE123"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	if emitter.events[0]["status"] != "fake" {
		t.Errorf("event status mismatch: %v", emitter.events[0])
	}
	if emitter.events[0]["batch_code"] != "NOPE123" {
		t.Errorf("event code mismatch: %v", emitter.events[0])
	}
}

func TestStatusDisplay(t *testing.T) {
	cases := map[Status]string{
		StatusValid:     "Valid",
		StatusExpired:   "Expired",
		StatusFake:      "Fake",
		StatusSuspected: "Suspected Counterfeit",
	}
	for status, want := range cases {
		if got := status.Display(); got != want {
			t.Errorf("%s: expected %q, got %q", status, want, got)
		}
	}
}
