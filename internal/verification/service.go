// Package verification fuses up to three independent presence signals into
// one trust score. The orchestrator invokes whichever scorers have data,
// sums capped per-signal scores, and gates the verdict on a threshold.
// Scorers return representable zero-score values instead of errors, so
// aggregation is total: a dependency outage degrades one signal, never the
// whole verification.
package verification

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"popcheck/internal/audit"
	"popcheck/internal/verification/metrics"
	"popcheck/internal/verification/models"
	dErrors "popcheck/pkg/domain-errors"
	metadata "popcheck/pkg/platform/middleware/metadata"
)

// GPSScorer is the external geofence collaborator, consumed through its
// published result shape only.
type GPSScorer interface {
	Score(device, venue models.Coordinates, accuracyMeters float64) *models.GPSResult
}

// ReceiptScorer degrades internally; it never returns an error.
type ReceiptScorer interface {
	Score(ctx context.Context, data *models.ReceiptData, brandName, popupID string) *models.ReceiptResult
}

// AuditSink receives completed verification events. Emission is
// fire-and-forget.
type AuditSink interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the verification orchestrator.
type Service struct {
	gps     GPSScorer
	qr      *QRScorer
	receipt ReceiptScorer
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditSink
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit attaches the verification audit trail.
func WithAudit(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

// New creates the orchestrator over the three signal scorers.
func New(gps GPSScorer, qr *QRScorer, receipt ReceiptScorer, opts ...Option) *Service {
	s := &Service{
		gps:     gps,
		qr:      qr,
		receipt: receipt,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify scores the request's present signals and returns the fused verdict.
// The only error path is validation; a failed verification is a normal,
// fully-formed result. Zero signal blocks is valid and scores zero.
func (s *Service) Verify(ctx context.Context, req *models.Request) (*models.Result, error) {
	if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
		return nil, dErrors.NewValidation(fieldErrs)
	}

	var (
		gpsRes     *models.GPSResult
		qrRes      *models.QRResult
		receiptRes *models.ReceiptResult
	)

	// Scorers are independent; run the present ones concurrently. None of
	// them errors, so the group only propagates context cancellation.
	g, gctx := errgroup.WithContext(ctx)

	if req.GPS != nil {
		g.Go(func() error {
			gpsRes = s.gps.Score(req.GPS.Coordinates, req.PopupLocation, req.GPS.Accuracy)
			return nil
		})
	}
	if req.QR != nil {
		g.Go(func() error {
			qrRes = s.qr.Score(gctx, req.QR, req.PopupID, req.UserID)
			return nil
		})
	}
	if req.Receipt != nil {
		g.Go(func() error {
			receiptRes = s.receipt.Score(gctx, req.Receipt, req.BrandName, req.PopupID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification cancelled")
	}

	result := models.NewResult(req.PopupID, req.UserID, gpsRes, qrRes, receiptRes)

	if s.metrics != nil {
		s.metrics.RecordVerification(result.Passed, result.TotalScore)
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Timestamp:  result.VerifiedAt,
			PopupID:    result.PopupID,
			UserID:     result.UserID,
			ClientIP:   metadata.GetClientIP(ctx),
			TotalScore: result.TotalScore,
			Passed:     result.Passed,
			Methods:    result.Methods,
		})
	}
	s.logger.Info("verification completed",
		"popup_id", result.PopupID,
		"user_id", result.UserID,
		"total_score", result.TotalScore,
		"passed", result.Passed,
		"methods", result.Methods,
	)

	return result, nil
}
