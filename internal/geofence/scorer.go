// Package geofence scores device geolocation against a venue's position.
// The distance-to-score curve is a tunable policy, monotonic in distance:
// full marks well inside the radius, linear decay to zero at twice the
// radius, and a penalty for imprecise fixes.
package geofence

import (
	"math"

	"popcheck/internal/verification/models"
)

const (
	// MaxScore is the GPS signal's contribution cap.
	MaxScore = 40

	// DefaultRadiusMeters is the venue perimeter when the caller leaves it unset.
	DefaultRadiusMeters = 100.0

	// accuracyPenaltyMeters is the reported-accuracy bound beyond which a fix
	// is considered too fuzzy to earn full credit.
	accuracyPenaltyMeters = 200.0
)

// Scorer turns a device fix into a capped GPS score.
type Scorer struct {
	radiusMeters float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRadius overrides the venue perimeter in meters.
func WithRadius(meters float64) Option {
	return func(s *Scorer) {
		if meters > 0 {
			s.radiusMeters = meters
		}
	}
}

// New creates a geofence scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{radiusMeters: DefaultRadiusMeters}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the GPS result for a device fix against the venue location.
// accuracyMeters is the device-reported radius of confidence; zero means
// unreported and is taken at face value.
func (s *Scorer) Score(device, venue models.Coordinates, accuracyMeters float64) *models.GPSResult {
	distance := DistanceMeters(device.Latitude, device.Longitude, venue.Latitude, venue.Longitude)

	score := 0.0
	switch {
	case distance <= s.radiusMeters:
		score = MaxScore
	case distance < 2*s.radiusMeters:
		// Linear decay across the second radius
		score = MaxScore * (2 - distance/s.radiusMeters)
	}

	if accuracyMeters > accuracyPenaltyMeters {
		score /= 2
	}

	return &models.GPSResult{
		Score:    int(math.Round(score)),
		Distance: math.Round(distance*10) / 10,
		Accuracy: accuracyMeters,
	}
}

// DistanceMeters computes the great-circle distance between two points using
// the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
