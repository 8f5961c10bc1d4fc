package verification

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pharmatrace/medverify/internal/anomaly"
	"github.com/pharmatrace/medverify/internal/catalog"
	"github.com/pharmatrace/medverify/internal/idgen"
	"github.com/pharmatrace/medverify/internal/logging"
	"github.com/pharmatrace/medverify/internal/metrics"
	"github.com/pharmatrace/medverify/internal/traces"
	"github.com/pharmatrace/medverify/internal/validation"
	"github.com/pharmatrace/medverify/internal/verifylog"
)

// Engine orchestrates the verification decision chain. All collaborators
// are injected; the engine itself is stateless across calls and safe for
// concurrent use.
type Engine struct {
	catalogue catalog.Store
	logs      verifylog.Store
	scorer    *anomaly.Scorer
	events    EventEmitter
	now       func() time.Time
}

// NewEngine creates a verification engine.
func NewEngine(catalogue catalog.Store, logs verifylog.Store, scorer *anomaly.Scorer) *Engine {
	return &Engine{
		catalogue: catalogue,
		logs:      logs,
		scorer:    scorer,
		now:       time.Now,
	}
}

// WithEvents attaches a realtime event emitter.
func (e *Engine) WithEvents(emitter EventEmitter) *Engine {
	e.events = emitter
	return e
}

// withNow overrides the clock; tests only.
func (e *Engine) withNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Verify classifies a submitted batch code. Business outcomes (including
// unknown codes) never return an error; the error path is reserved for
// catalogue infrastructure failures.
func (e *Engine) Verify(ctx context.Context, req Request) (*Outcome, error) {
	code := validation.NormalizeBatchCode(req.Code)

	ctx, span := traces.StartSpan(ctx, "verification.Verify",
		attribute.String("batch_code", code),
	)
	defer span.End()

	batch, err := e.catalogue.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("catalogue lookup failed: %w", err)
	}

	outcome := e.classify(ctx, code, batch)

	e.record(ctx, code, req, outcome)
	metrics.VerificationsTotal.WithLabelValues(string(outcome.Status)).Inc()
	if outcome.ScorerNeutral {
		metrics.ScorerNeutralTotal.Inc()
	}
	e.emit(code, outcome)

	return outcome, nil
}

// classify walks the decision chain for a (possibly absent) catalogue record.
func (e *Engine) classify(ctx context.Context, code string, batch *catalog.Batch) *Outcome {
	if batch == nil {
		return &Outcome{
			Status:     StatusFake,
			Reason:     "Batch code not found in official catalogue",
			Confidence: confidenceNotFound,
		}
	}

	days := e.daysToExpiry(batch.ExpiryDate)
	if days < 0 {
		return &Outcome{
			Status:     StatusExpired,
			Reason:     fmt.Sprintf("Medicine expired %d days ago", -days),
			Confidence: confidenceExpired,
			BatchInfo: &BatchInfo{
				Name:         batch.Name,
				Manufacturer: batch.Manufacturer,
				ExpiryDate:   batch.ExpiryDate,
			},
		}
	}

	if batch.Status == catalog.StatusFake {
		return &Outcome{
			Status:     StatusFake,
			Reason:     "Batch identified as counterfeit in our catalogue",
			Confidence: confidenceKnownFake,
		}
	}

	// Best-effort: a failed increment only skews a heuristic feature.
	if err := e.catalogue.IncrementScanCount(ctx, code); err != nil {
		logging.L(ctx).Warn("scan count increment failed",
			"batch_code", code, "error", err)
		metrics.ScanCountIncrementFailures.Inc()
	}
	scanCount := batch.ScanCount + 1 // include this scan

	result := e.scorer.Score(anomaly.FeatureVector{
		ManufacturerScore: batch.ManufacturerScore,
		DaysToExpiry:      float64(days),
		ScanCount:         float64(scanCount),
		DistinctLocations: float64(batch.DistinctLocations),
		BatchAgeDays:      defaultBatchAgeDays,
		VerificationRatio: defaultVerificationRatio,
	})
	if !result.Neutral {
		metrics.AnomalyScore.Observe(result.RawScore)
	}

	info := &BatchInfo{
		Name:         batch.Name,
		Manufacturer: batch.Manufacturer,
		ExpiryDate:   batch.ExpiryDate,
		ScanCount:    scanCount,
	}

	if result.Anomalous && result.Confidence > suspicionThreshold {
		return &Outcome{
			Status: StatusSuspected,
			Reason: fmt.Sprintf("Anomaly detection flagged this batch (confidence: %.1f%%)",
				result.Confidence*100),
			Confidence:    result.Confidence,
			BatchInfo:     info,
			ScorerNeutral: result.Neutral,
		}
	}

	confidence := confidenceValid
	if result.Anomalous {
		// Flagged but below threshold: confidence degrades with the flag
		confidence = 1 - result.Confidence
	}
	return &Outcome{
		Status:        StatusValid,
		Reason:        fmt.Sprintf("Medicine is authentic and valid (expires in %d days)", days),
		Confidence:    confidence,
		BatchInfo:     info,
		ScorerNeutral: result.Neutral,
	}
}

// daysToExpiry returns whole days until expiry; negative when past. The
// zero time is the "invalid date" sentinel and reads as expired long ago.
func (e *Engine) daysToExpiry(expiry time.Time) int {
	if expiry.IsZero() {
		return invalidExpirySentinel
	}
	diff := expiry.Sub(e.now())
	return int(math.Floor(diff.Hours() / 24))
}

// record appends the single log entry for this call. Failures are counted
// and logged, never surfaced.
func (e *Engine) record(ctx context.Context, code string, req Request, outcome *Outcome) {
	entry := &verifylog.Entry{
		ID:         idgen.WithPrefix("vl_"),
		BatchCode:  code,
		Status:     string(outcome.Status),
		Reason:     outcome.Reason,
		Confidence: outcome.Confidence,
		Timestamp:  e.now().UTC(),
		ClientIP:   req.ClientIP,
	}
	if validation.ValidCoordinates(req.Lat, req.Lng) {
		entry.Location = &verifylog.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}

	if err := e.logs.Append(ctx, entry); err != nil {
		logging.L(ctx).Error("verification log append failed",
			"batch_code", code, "status", outcome.Status, "error", err)
		metrics.LogAppendFailures.Inc()
	}
}

// emit broadcasts the outcome to realtime subscribers when a hub is wired.
func (e *Engine) emit(code string, outcome *Outcome) {
	if e.events == nil {
		return
	}
	e.events.EmitVerification(map[string]interface{}{
		"batch_code": code,
		"status":     string(outcome.Status),
		"confidence": outcome.Confidence,
	})
}
