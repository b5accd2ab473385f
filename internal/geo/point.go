// Package geo provides geographic primitives for the map pipeline: coordinate
// validation, great-circle distance, radius filtering, and marker cell keys.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate range errors.
var (
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate checks that the point lies within the valid latitude/longitude
// ranges and that neither component is NaN or infinite.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: got %v", ErrLatitudeOutOfRange, p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: got %v", ErrLongitudeOutOfRange, p.Lng)
	}
	return nil
}

// Orb converts the point to an orb.Point ([lng, lat] order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Bound computes the bounding box of a set of points. Returns the zero bound
// when the slice is empty. Used for diagnostics on fetched viewports.
func Bound(points []Point) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, p.Orb())
	}
	return mp.Bound()
}
