package geo

import (
	"log/slog"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance between two points in
// kilometers using the haversine formula. Pure function; callers are expected
// to validate coordinates separately if range enforcement matters.
func DistanceKm(a, b Point) float64 {
	latA := degToRad(a.Lat)
	latB := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Locatable is implemented by map items that carry a coordinate.
type Locatable interface {
	Coord() Point
}

// FilterByRadius returns the items within maxKm of origin. Items whose
// coordinates fail validation are excluded and logged rather than causing an
// error; a malformed item must never abort filtering of the rest.
func FilterByRadius[T Locatable](items []T, origin Point, maxKm float64, logger *slog.Logger) []T {
	if logger == nil {
		logger = slog.Default()
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		p := item.Coord()
		if err := p.Validate(); err != nil {
			logger.Warn("excluding item with malformed coordinate",
				slog.Float64("latitude", p.Lat),
				slog.Float64("longitude", p.Lng),
				slog.String("error", err.Error()))
			continue
		}
		if DistanceKm(origin, p) <= maxKm {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
