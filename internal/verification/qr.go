package verification

import (
	"context"
	"log/slog"
	"time"

	"popcheck/internal/totp"
	"popcheck/internal/totp/replay"
	"popcheck/internal/verification/metrics"
	"popcheck/internal/verification/models"
)

// codeMaxAge is how long after issuance a scanned code is still scoreable:
// the current window plus the previous-window tolerance.
const codeMaxAge = 2 * totp.Window

// QRScorer verifies the on-site one-time code: TOTP match against the
// popup's secret, then atomic replay consumption. The score is binary.
type QRScorer struct {
	secrets SecretProvider
	guard   replay.Guard
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// QROption configures a QRScorer.
type QROption func(*QRScorer)

func WithQRLogger(logger *slog.Logger) QROption {
	return func(s *QRScorer) {
		s.logger = logger
	}
}

func WithQRMetrics(m *metrics.Metrics) QROption {
	return func(s *QRScorer) {
		s.metrics = m
	}
}

// WithQRClock overrides the time source for tests.
func WithQRClock(now func() time.Time) QROption {
	return func(s *QRScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewQRScorer creates the QR signal scorer.
func NewQRScorer(secrets SecretProvider, guard replay.Guard, opts ...QROption) *QRScorer {
	s := &QRScorer{
		secrets: secrets,
		guard:   guard,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score verifies the submitted code for (popupID, userID). A replayed code
// is logged and counted but reported exactly like a wrong one, so an
// attacker cannot distinguish "right code, already used" from "wrong code".
func (s *QRScorer) Score(ctx context.Context, data *models.QRData, popupID, userID string) *models.QRResult {
	now := s.now()

	if now.Sub(data.IssuedAt) > codeMaxAge {
		return &models.QRResult{Matched: false, Score: 0, Expired: true}
	}

	res := totp.Verify(data.Code, s.secrets.SecretFor(popupID), now)
	if !res.Valid {
		return &models.QRResult{Matched: false, Score: 0}
	}

	used, err := s.guard.CheckAndMark(ctx, popupID, userID, data.Code)
	if err != nil {
		// Guard outage: accept rather than punish the user; the TOTP match
		// already proves on-site knowledge within the last two windows.
		s.logger.Error("replay guard unavailable, accepting code unguarded", "popup_id", popupID, "error", err)
	} else if used {
		s.logger.Warn("replayed one-time code rejected", "popup_id", popupID, "user_id", userID)
		if s.metrics != nil {
			s.metrics.RecordReplay()
		}
		return &models.QRResult{Matched: false, Score: 0}
	}

	return &models.QRResult{
		Matched:          true,
		Score:            models.MaxQRScore,
		RemainingSeconds: totp.RemainingSeconds(now),
	}
}
