package geo

import (
	"math"
	"strconv"
	"strings"
)

// DefaultCellDecimals is the default number of decimal places for rounded
// cell keys. Four decimals is roughly an 11 m cell at the equator, which
// merges markers that share a venue without swallowing neighbors.
const DefaultCellDecimals = 4

// CellKeyFunc maps a coordinate to a rendering-cell key. Items mapping to the
// same key are drawn as a single clustered marker.
type CellKeyFunc func(p Point) string

// RoundedCellKey returns a CellKeyFunc that rounds each coordinate component
// to the given number of decimal places and joins them as "lat:lng".
func RoundedCellKey(decimals int) CellKeyFunc {
	if decimals < 0 {
		decimals = DefaultCellDecimals
	}
	scale := math.Pow10(decimals)
	return func(p Point) string {
		lat := math.Round(p.Lat*scale) / scale
		lng := math.Round(p.Lng*scale) / scale

		// Rounding a small negative coordinate yields -0, which would
		// format as "-0.0000" and split the cell on the zero meridians.
		if lat == 0 {
			lat = 0
		}
		if lng == 0 {
			lng = 0
		}

		var b strings.Builder
		b.WriteString(strconv.FormatFloat(lat, 'f', decimals, 64))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(lng, 'f', decimals, 64))
		return b.String()
	}
}

// GeohashCellKey returns a CellKeyFunc backed by geohash encoding at the
// given precision. Coarser than RoundedCellKey; useful for zoomed-out views.
func GeohashCellKey(precision int) CellKeyFunc {
	return func(p Point) string {
		return GeohashEncode(p.Lat, p.Lng, precision)
	}
}
