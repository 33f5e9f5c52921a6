package verification

import (
	"context"
	"math"

	"shiftguard.io/application/utils"
)

const earthRadiusMeters = 6_371_000

// HaversineMeters is the great-circle distance between two coordinates.
func HaversineMeters(lat1 float64, lon1 float64, lat2 float64, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// GeofenceLocationChecker scores a GPS sample against the worksite fence.
// Confidence reflects both fence membership and reported GPS accuracy; a
// reading with worse accuracy than MaxAccuracyMeters contributes nothing.
type GeofenceLocationChecker struct {
	MaxAccuracyMeters float64
}

func NewGeofenceLocationChecker() *GeofenceLocationChecker {
	return &GeofenceLocationChecker{MaxAccuracyMeters: 100}
}

func (c *GeofenceLocationChecker) Check(ctx context.Context, sample LocationSample, site Worksite) StepResult {
	distance := HaversineMeters(sample.Latitude, sample.Longitude, site.Latitude, site.Longitude)
	inFence := site.RadiusMeters > 0 && distance <= site.RadiusMeters

	accuracyScore := 0.0
	if c.MaxAccuracyMeters > 0 {
		accuracyScore = utils.Clamp01(1 - sample.AccuracyMeters/c.MaxAccuracyMeters)
	}

	confidence := 0.0
	if inFence {
		// a dead-accurate fix inside the fence scores 1.0, a fix at the
		// accuracy ceiling scores 0.5
		confidence = utils.Clamp01(0.5 + 0.5*accuracyScore)
	} else if distance > 0 {
		confidence = utils.Clamp01(site.RadiusMeters/distance) * accuracyScore * 0.5
	}

	return StepResult{
		Step:       StepLocation,
		Success:    inFence,
		Confidence: confidence,
	}
}
