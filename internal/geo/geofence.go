package geo

import (
	"math"

	"go.uber.org/zap"
)

const earthRadiusKm = 6371

// MzuzuUniversityZone is the distinguished zone name that gets a widened
// radius when a customer explicitly selects it as the delivery location.
const MzuzuUniversityZone = "Mzuzu University"

// mzuzuUniversityWidenedRadiusKm applies only when the delivery location
// hint exactly matches MzuzuUniversityZone.
const mzuzuUniversityWidenedRadiusKm = 10

// Zone is a named circular service area used to gate delivery eligibility.
type Zone struct {
	Name     string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// DefaultZones returns the configured service areas around Mzuzu, in
// evaluation order. The Mzuzu University zone must stay first; the
// widened-radius special case targets it by name.
func DefaultZones() []Zone {
	return []Zone{
		{Name: "Mzuzu University", Lat: -11.4477, Lng: 34.0167, RadiusKm: 5},
		{Name: "Mzuzu Central Hospital", Lat: -11.4593, Lng: 34.0151, RadiusKm: 1},
		{Name: "Luwinga", Lat: -11.4612, Lng: 34.0189, RadiusKm: 1.5},
		{Name: "Area 1B", Lat: -11.4523, Lng: 34.0213, RadiusKm: 1},
		{Name: "KAKA", Lat: -11.4489, Lng: 34.0156, RadiusKm: 1},
	}
}

// Validator decides whether a delivery point lies within any configured
// service zone. Zones are injected so tests can substitute their own.
type Validator struct {
	zones  []Zone
	logger *zap.Logger
}

// NewValidator creates a Validator over the given zones
func NewValidator(zones []Zone, logger *zap.Logger) *Validator {
	return &Validator{
		zones:  zones,
		logger: logger,
	}
}

// WithinServiceArea reports whether (lat, lng) falls inside any configured
// zone. If locationHint exactly equals the Mzuzu University zone name, that
// zone is checked first at a widened 10 km radius and accepted immediately
// when in range. Otherwise zones are evaluated in configured order and the
// first zone whose radius is satisfied (inclusive) accepts the point.
func (v *Validator) WithinServiceArea(lat, lng float64, locationHint string) bool {
	v.logger.Debug("Validating delivery location",
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lng),
		zap.String("location_hint", locationHint),
	)

	if locationHint == MzuzuUniversityZone {
		for _, zone := range v.zones {
			if zone.Name != MzuzuUniversityZone {
				continue
			}
			distance := Distance(lat, lng, zone.Lat, zone.Lng)
			v.logger.Debug("Widened radius check",
				zap.String("zone", zone.Name),
				zap.Float64("distance_km", distance),
				zap.Float64("allowed_radius_km", mzuzuUniversityWidenedRadiusKm),
			)
			if distance <= mzuzuUniversityWidenedRadiusKm {
				return true
			}
			break
		}
	}

	for _, zone := range v.zones {
		distance := Distance(lat, lng, zone.Lat, zone.Lng)
		v.logger.Debug("Distance check",
			zap.String("zone", zone.Name),
			zap.Float64("distance_km", distance),
			zap.Float64("allowed_radius_km", zone.RadiusKm),
			zap.Bool("within_range", distance <= zone.RadiusKm),
		)
		if distance <= zone.RadiusKm {
			return true
		}
	}

	return false
}

// Distance computes the haversine distance in kilometres between two
// coordinate pairs.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLon := degToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
