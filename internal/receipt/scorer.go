package receipt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"popcheck/internal/ratelimit/gate"
	"popcheck/internal/verification/metrics"
	"popcheck/internal/verification/models"
	"popcheck/pkg/platform/circuit"
	"popcheck/pkg/platform/retry"
	"popcheck/pkg/platform/sentinel"
)

// BreakerName keys the OCR dependency in the circuit breaker registry.
const BreakerName = "receipt-ocr"

// OCRClient is what the scorer needs from the OCR service client.
type OCRClient interface {
	Verify(ctx context.Context, imageBase64, brandName, popupID string, checkInDate time.Time) (*models.ReceiptResult, error)
}

// Scorer wraps the OCR call in the resilience stack. Retry sits outside the
// breaker so every failed attempt counts toward its threshold; a circuit-open
// rejection is marked permanent since retrying inside the recovery window
// cannot succeed.
type Scorer struct {
	client  OCRClient
	breaker *circuit.Breaker
	gate    *gate.Gate
	retry   retry.Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Scorer.
type Option func(*Scorer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// WithGate caps concurrent OCR calls.
func WithGate(g *gate.Gate) Option {
	return func(s *Scorer) {
		s.gate = g
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// WithRetryOptions overrides the retry schedule.
func WithRetryOptions(opts retry.Options) Option {
	return func(s *Scorer) {
		s.retry = opts
	}
}

// New creates a receipt scorer over the OCR client and its breaker.
func New(client OCRClient, breaker *circuit.Breaker, opts ...Option) *Scorer {
	s := &Scorer{
		client:  client,
		breaker: breaker,
		retry:   retry.DefaultOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score verifies the receipt image, degrading every failure to a zero-score
// unverified result. The orchestrator's partial-failure policy depends on
// this never propagating an error: GPS and QR results must stay usable when
// the OCR dependency is down.
func (s *Scorer) Score(ctx context.Context, data *models.ReceiptData, brandName, popupID string) *models.ReceiptResult {
	if s.gate != nil {
		if err := s.gate.Acquire(ctx); err != nil {
			s.logger.Warn("receipt scoring skipped: admission gate", "error", err)
			return s.degraded()
		}
		defer s.gate.Release()
	}

	checkInDate := data.CheckInDate
	if checkInDate.IsZero() {
		checkInDate = time.Now()
	}

	result, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) (*models.ReceiptResult, error) {
		var res *models.ReceiptResult
		execErr := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			res, callErr = s.client.Verify(ctx, data.ImageBase64, brandName, popupID, checkInDate)
			return callErr
		})
		if errors.Is(execErr, sentinel.ErrCircuitOpen) {
			return nil, retry.Permanent(execErr)
		}
		return res, execErr
	})
	if err != nil {
		s.logger.Warn("receipt verification degraded to zero score", "popup_id", popupID, "error", err)
		return s.degraded()
	}

	// Clamp the collaborator's score to this signal's cap.
	if result.Score > models.MaxReceiptScore {
		result.Score = models.MaxReceiptScore
	}
	if result.Score < 0 {
		result.Score = 0
	}
	return result
}

func (s *Scorer) degraded() *models.ReceiptResult {
	if s.metrics != nil {
		s.metrics.ReceiptDegraded.Inc()
	}
	return &models.ReceiptResult{Verified: false, Score: 0}
}
