package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcheck/internal/audit"
	"popcheck/internal/totp"
	"popcheck/internal/totp/replay"
	"popcheck/internal/verification/models"
	dErrors "popcheck/pkg/domain-errors"
	metadata "popcheck/pkg/platform/middleware/metadata"
)

type fakeGPSScorer struct {
	result *models.GPSResult
}

func (f *fakeGPSScorer) Score(device, venue models.Coordinates, accuracyMeters float64) *models.GPSResult {
	return f.result
}

type fakeReceiptScorer struct {
	result *models.ReceiptResult
}

func (f *fakeReceiptScorer) Score(ctx context.Context, data *models.ReceiptData, brandName, popupID string) *models.ReceiptResult {
	return f.result
}

func newTestService(t *testing.T, gps *models.GPSResult, receipt *models.ReceiptResult) (*Service, *DerivedSecrets) {
	t.Helper()

	secrets := NewDerivedSecrets([]byte("service-test-master"))
	qr := NewQRScorer(secrets, replay.NewMemory(),
		WithQRLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	svc := New(&fakeGPSScorer{result: gps}, qr, &fakeReceiptScorer{result: receipt},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return svc, secrets
}

func validRequest() *models.Request {
	return &models.Request{
		PopupID:       "popup-1",
		UserID:        "user-1",
		PopupLocation: models.Coordinates{Latitude: 37.5271, Longitude: 127.0406},
		BrandName:     "Tamburins",
	}
}

func TestVerify_SingleSignalBelowThreshold(t *testing.T) {
	svc, _ := newTestService(t, &models.GPSResult{Score: 40, Distance: 12}, nil)

	req := validRequest()
	req.GPS = &models.GPSData{Coordinates: models.Coordinates{Latitude: 37.5272, Longitude: 127.0406}}

	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 40, result.TotalScore)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{models.MethodGPS}, result.Methods)
	assert.Nil(t, result.QR)
	assert.Nil(t, result.Receipt)
}

func TestVerify_GPSPlusQRPasses(t *testing.T) {
	svc, secrets := newTestService(t, &models.GPSResult{Score: 40, Distance: 5}, nil)

	now := time.Now()
	req := validRequest()
	req.GPS = &models.GPSData{Coordinates: models.Coordinates{Latitude: 37.5272, Longitude: 127.0406}}
	req.QR = &models.QRData{
		Code:     totp.Generate(secrets.SecretFor("popup-1"), now),
		IssuedAt: now,
	}

	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 80, result.TotalScore)
	assert.True(t, result.Passed)
	assert.Equal(t, []string{models.MethodGPS, models.MethodQR}, result.Methods)
	assert.True(t, result.QR.Matched)
}

func TestVerify_QRPlusReceiptBoundaryPasses(t *testing.T) {
	svc, secrets := newTestService(t, nil,
		&models.ReceiptResult{Verified: true, Score: 20, BrandMatched: true, DateValid: true})

	now := time.Now()
	req := validRequest()
	req.QR = &models.QRData{
		Code:     totp.Generate(secrets.SecretFor("popup-1"), now),
		IssuedAt: now,
	}
	req.Receipt = &models.ReceiptData{ImageBase64: "aGVsbG8="}

	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 60, result.TotalScore)
	assert.True(t, result.Passed, "exactly the threshold must pass")
	assert.Nil(t, result.GPS)
}

func TestVerify_ZeroSignalsIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	result, err := svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalScore)
	assert.False(t, result.Passed)
	assert.Empty(t, result.Methods)
}

func TestVerify_ReceiptOutageDegradesNotFails(t *testing.T) {
	// The receipt scorer's contract is to degrade to a zero-score result.
	// Remaining signals must still count and the verdict must still form.
	svc, _ := newTestService(t, &models.GPSResult{Score: 40, Distance: 3},
		&models.ReceiptResult{Verified: false, Score: 0})

	req := validRequest()
	req.GPS = &models.GPSData{Coordinates: models.Coordinates{Latitude: 37.5272, Longitude: 127.0406}}
	req.Receipt = &models.ReceiptData{ImageBase64: "aGVsbG8="}

	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 40, result.TotalScore)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{models.MethodGPS, models.MethodReceipt}, result.Methods)
	assert.False(t, result.Receipt.Verified)
}

func TestVerify_ValidationFailureListsEveryField(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	req := &models.Request{
		PopupLocation: models.Coordinates{Latitude: 91, Longitude: 0},
		QR:            &models.QRData{},
	}

	_, err := svc.Verify(context.Background(), req)
	require.Error(t, err)

	var dErr *dErrors.Error
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, dErrors.CodeInvalidInput, dErr.Code)

	fields := make([]string, 0, len(dErrors.FieldsOf(err)))
	for _, fe := range dErrors.FieldsOf(err) {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "popup_id")
	assert.Contains(t, fields, "user_id")
	assert.Contains(t, fields, "popup_location.latitude")
	assert.Contains(t, fields, "qr.code")
	assert.Contains(t, fields, "qr.issued_at")
}

type capturingSink struct {
	events []audit.Event
}

func (c *capturingSink) Emit(_ context.Context, event audit.Event) {
	c.events = append(c.events, event)
}

func TestVerify_EmitsAuditEvent(t *testing.T) {
	sink := &capturingSink{}
	secrets := NewDerivedSecrets([]byte("audit-test-master"))
	qr := NewQRScorer(secrets, replay.NewMemory(),
		WithQRLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	svc := New(&fakeGPSScorer{result: &models.GPSResult{Score: 40}}, qr, &fakeReceiptScorer{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAudit(sink))

	req := validRequest()
	req.GPS = &models.GPSData{Coordinates: models.Coordinates{Latitude: 37.5272, Longitude: 127.0406}}

	ctx := metadata.WithClientMetadata(context.Background(), "203.0.113.7", "test-agent")
	result, err := svc.Verify(ctx, req)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, "popup-1", event.PopupID)
	assert.Equal(t, "203.0.113.7", event.ClientIP)
	assert.Equal(t, result.TotalScore, event.TotalScore)
	assert.Equal(t, result.Passed, event.Passed)
	assert.Equal(t, result.VerifiedAt, event.Timestamp)
}

func TestVerify_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t, &models.GPSResult{Score: 40}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := validRequest()
	req.GPS = &models.GPSData{Coordinates: models.Coordinates{Latitude: 37.5272, Longitude: 127.0406}}

	// Scorers here never observe ctx, so cancellation before fan-out still
	// yields a result; the group only fails when a scorer propagates it.
	result, err := svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 40, result.TotalScore)
}
