package models

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	dErrors "popcheck/pkg/domain-errors"
)

// PassThreshold is the minimum fused score that proves presence.
const PassThreshold = 60

// Per-signal score caps. No single signal reaches the threshold alone.
const (
	MaxGPSScore     = 40
	MaxQRScore      = 40
	MaxReceiptScore = 20
	MaxTotalScore   = 100
)

// Signal method names reported in Result.Methods.
const (
	MethodGPS     = "gps"
	MethodQR      = "qr"
	MethodReceipt = "receipt"
)

// Coordinates is an immutable latitude/longitude pair supplied by the caller.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GPSData is the device geolocation signal block.
type GPSData struct {
	Coordinates
	Accuracy float64 `json:"accuracy,omitempty"` // meters, device-reported
}

// QRData is the on-site one-time code signal block. IssuedAt is when the
// venue display produced the code the user scanned.
type QRData struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// ReceiptData is the purchase receipt signal block.
type ReceiptData struct {
	ImageBase64 string    `json:"image_base64"`
	CheckInDate time.Time `json:"check_in_date,omitempty"`
}

// Request carries whichever signals the caller could produce. Zero to three
// signal blocks is valid; absent blocks simply contribute no score.
type Request struct {
	PopupID       string       `json:"popup_id"`
	UserID        string       `json:"user_id"`
	PopupLocation Coordinates  `json:"popup_location"`
	BrandName     string       `json:"brand_name"`
	GPS           *GPSData     `json:"gps,omitempty"`
	QR            *QRData      `json:"qr,omitempty"`
	Receipt       *ReceiptData `json:"receipt,omitempty"`
}

// Validate reports every malformed field at once. An empty slice means the
// request is scoreable.
func (r *Request) Validate() []dErrors.FieldError {
	var errs []dErrors.FieldError

	if r.PopupID == "" {
		errs = append(errs, dErrors.FieldError{Field: "popup_id", Message: "must not be empty"})
	}
	if r.UserID == "" {
		errs = append(errs, dErrors.FieldError{Field: "user_id", Message: "must not be empty"})
	}
	if r.PopupLocation.Latitude < -90 || r.PopupLocation.Latitude > 90 {
		errs = append(errs, dErrors.FieldError{Field: "popup_location.latitude", Message: "must be between -90 and 90"})
	}
	if r.PopupLocation.Longitude < -180 || r.PopupLocation.Longitude > 180 {
		errs = append(errs, dErrors.FieldError{Field: "popup_location.longitude", Message: "must be between -180 and 180"})
	}

	if r.GPS != nil {
		if r.GPS.Latitude < -90 || r.GPS.Latitude > 90 {
			errs = append(errs, dErrors.FieldError{Field: "gps.latitude", Message: "must be between -90 and 90"})
		}
		if r.GPS.Longitude < -180 || r.GPS.Longitude > 180 {
			errs = append(errs, dErrors.FieldError{Field: "gps.longitude", Message: "must be between -180 and 180"})
		}
		if r.GPS.Accuracy < 0 {
			errs = append(errs, dErrors.FieldError{Field: "gps.accuracy", Message: "must not be negative"})
		}
	}

	if r.QR != nil {
		if r.QR.Code == "" {
			errs = append(errs, dErrors.FieldError{Field: "qr.code", Message: "must not be empty"})
		}
		if r.QR.IssuedAt.IsZero() {
			errs = append(errs, dErrors.FieldError{Field: "qr.issued_at", Message: "must be set"})
		}
	}

	if r.Receipt != nil {
		if r.Receipt.ImageBase64 == "" {
			errs = append(errs, dErrors.FieldError{Field: "receipt.image_base64", Message: "must not be empty"})
		} else if _, err := base64.StdEncoding.DecodeString(r.Receipt.ImageBase64); err != nil {
			errs = append(errs, dErrors.FieldError{Field: "receipt.image_base64", Message: "must be valid base64"})
		}
	}

	return errs
}

// GPSResult is the geofence scorer's published result shape.
type GPSResult struct {
	Score    int     `json:"score"`
	Distance float64 `json:"distance"` // meters from the venue
	Accuracy float64 `json:"accuracy"` // meters, echoed from the request
}

// QRResult is the one-time code outcome. Score is binary: full credit or
// none. A replayed code is reported exactly like a wrong one.
type QRResult struct {
	Matched          bool `json:"matched"`
	Score            int  `json:"score"`
	Expired          bool `json:"expired"`
	RemainingSeconds int  `json:"remaining_seconds,omitempty"`
}

// ReceiptResult is the OCR collaborator's outcome, or the zero-score
// degraded form when the dependency is down.
type ReceiptResult struct {
	Verified      bool   `json:"verified"`
	Score         int    `json:"score"`
	BrandMatched  bool   `json:"brand_matched"`
	DateValid     bool   `json:"date_valid"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

// Result is the fused verdict. Immutable once constructed: created, returned
// to the caller, never mutated.
type Result struct {
	ID         string         `json:"id"`
	PopupID    string         `json:"popup_id"`
	UserID     string         `json:"user_id"`
	VerifiedAt time.Time      `json:"verified_at"`
	GPS        *GPSResult     `json:"gps"`
	QR         *QRResult      `json:"qr"`
	Receipt    *ReceiptResult `json:"receipt"`
	TotalScore int            `json:"total_score"`
	Passed     bool           `json:"passed"`
	Methods    []string       `json:"methods"`
}

// NewResult assembles the verdict from whichever component results exist,
// capping the fused score and applying the pass threshold.
func NewResult(popupID, userID string, gps *GPSResult, qr *QRResult, receipt *ReceiptResult) *Result {
	total := 0
	methods := []string{}

	if gps != nil {
		total += min(gps.Score, MaxGPSScore)
		methods = append(methods, MethodGPS)
	}
	if qr != nil {
		total += min(qr.Score, MaxQRScore)
		methods = append(methods, MethodQR)
	}
	if receipt != nil {
		total += min(receipt.Score, MaxReceiptScore)
		methods = append(methods, MethodReceipt)
	}
	total = min(total, MaxTotalScore)

	return &Result{
		ID:         uuid.NewString(),
		PopupID:    popupID,
		UserID:     userID,
		VerifiedAt: time.Now(),
		GPS:        gps,
		QR:         qr,
		Receipt:    receipt,
		TotalScore: total,
		Passed:     total >= PassThreshold,
		Methods:    methods,
	}
}
