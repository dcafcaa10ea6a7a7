package receipt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcheck/internal/ratelimit/gate"
	"popcheck/internal/verification/models"
	"popcheck/pkg/platform/circuit"
	"popcheck/pkg/platform/retry"
)

// fakeOCR scripts the collaborator's responses.
type fakeOCR struct {
	calls   int
	results []*models.ReceiptResult
	errs    []error
}

func (f *fakeOCR) Verify(context.Context, string, string, string, time.Time) (*models.ReceiptResult, error) {
	i := f.calls
	f.calls++
	var res *models.ReceiptResult
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func fastRetry(retries int) retry.Options {
	return retry.Options{Retries: retries, Factor: 2, MinTimeout: time.Millisecond, MaxTimeout: 5 * time.Millisecond}
}

func newScorer(client OCRClient, breaker *circuit.Breaker, opts ...Option) *Scorer {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetryOptions(fastRetry(1)),
	}
	return New(client, breaker, append(base, opts...)...)
}

func testData() *models.ReceiptData {
	return &models.ReceiptData{ImageBase64: "aGVsbG8=", CheckInDate: time.Now()}
}

func TestScore_SuccessPassesResultThrough(t *testing.T) {
	ocr := &fakeOCR{
		results: []*models.ReceiptResult{{Verified: true, Score: 20, BrandMatched: true, DateValid: true, ExtractedText: "GENTLE MONSTER 성수"}},
	}
	s := newScorer(ocr, circuit.New(BreakerName, circuit.WithRequestTimeout(0)))

	result := s.Score(context.Background(), testData(), "Gentle Monster", "popup-1")
	assert.True(t, result.Verified)
	assert.Equal(t, 20, result.Score)
	assert.True(t, result.BrandMatched)
}

func TestScore_ClampsCollaboratorScore(t *testing.T) {
	ocr := &fakeOCR{results: []*models.ReceiptResult{{Verified: true, Score: 95}}}
	s := newScorer(ocr, circuit.New(BreakerName, circuit.WithRequestTimeout(0)))

	result := s.Score(context.Background(), testData(), "brand", "popup-1")
	assert.Equal(t, models.MaxReceiptScore, result.Score)
}

func TestScore_RetriesTransientFailure(t *testing.T) {
	ocr := &fakeOCR{
		errs:    []error{errors.New("connection reset"), nil},
		results: []*models.ReceiptResult{nil, {Verified: true, Score: 15}},
	}
	s := newScorer(ocr, circuit.New(BreakerName, circuit.WithRequestTimeout(0)))

	result := s.Score(context.Background(), testData(), "brand", "popup-1")
	assert.True(t, result.Verified)
	assert.Equal(t, 2, ocr.calls)
}

func TestScore_FailureDegradesToZero(t *testing.T) {
	ocr := &fakeOCR{errs: []error{errors.New("500"), errors.New("500")}}
	s := newScorer(ocr, circuit.New(BreakerName, circuit.WithRequestTimeout(0)))

	result := s.Score(context.Background(), testData(), "brand", "popup-1")
	assert.False(t, result.Verified)
	assert.Zero(t, result.Score)
	assert.Equal(t, 2, ocr.calls) // initial attempt + 1 retry
}

func TestScore_OpenBreakerSkipsNetworkAndRetries(t *testing.T) {
	ocr := &fakeOCR{}
	breaker := circuit.New(BreakerName,
		circuit.WithFailureThreshold(1),
		circuit.WithRequestTimeout(0),
	)
	// Trip the breaker
	require.Error(t, breaker.Execute(context.Background(), func(context.Context) error {
		return errors.New("boom")
	}))

	s := newScorer(ocr, breaker, WithRetryOptions(fastRetry(5)))

	result := s.Score(context.Background(), testData(), "brand", "popup-1")
	assert.False(t, result.Verified)
	// Circuit-open is permanent: no retries, and the client never ran
	assert.Zero(t, ocr.calls)
}

func TestScore_GateExhaustionDegradesToZero(t *testing.T) {
	g := gate.New(1)
	require.NoError(t, g.Acquire(context.Background())) // hold the only slot

	ocr := &fakeOCR{}
	s := newScorer(ocr, circuit.New(BreakerName, circuit.WithRequestTimeout(0)), WithGate(g))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := s.Score(ctx, testData(), "brand", "popup-1")
	assert.False(t, result.Verified)
	assert.Zero(t, ocr.calls)
}
