package geo

import (
	"fmt"
	"math"

	"crewsignal/internal/models"
)

// earthRadiusMeters is the mean Earth radius used by the Haversine formula.
const earthRadiusMeters = 6371000.0

// Distance computes the great-circle distance in meters between two
// coordinates using the Haversine formula.
func Distance(a, b models.Coordinates) float64 {
	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)
	deltaLat := degreesToRadians(b.Latitude - a.Latitude)
	deltaLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether b lies within radiusMeters of a. The
// boundary is inclusive: a point at exactly the radius is in range.
func WithinRadius(a, b models.Coordinates, radiusMeters float64) bool {
	return Distance(a, b) <= radiusMeters
}

// FormatDistance renders a distance for notification text: meters below
// one kilometer, kilometers to one decimal otherwise.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm away", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm away", meters/1000)
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
