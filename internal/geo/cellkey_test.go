package geo

import "testing"

func TestRoundedCellKey(t *testing.T) {
	key := RoundedCellKey(4)

	tests := []struct {
		name string
		p    Point
		want string
	}{
		{name: "phoenix", p: Point{Lat: 33.4484, Lng: -112.074}, want: "33.4484:-112.0740"},
		{name: "rounds half up", p: Point{Lat: 33.44845, Lng: -112.07395}, want: "33.4485:-112.0740"},
		{name: "zero", p: Point{Lat: 0, Lng: 0}, want: "0.0000:0.0000"},
		{name: "negative coordinates", p: Point{Lat: -33.8688, Lng: -151.2093}, want: "-33.8688:-151.2093"},
		{name: "negative zero normalizes", p: Point{Lat: -0.00001, Lng: -0.00004}, want: "0.0000:0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := key(tt.p); got != tt.want {
				t.Errorf("RoundedCellKey()(%v) = %q, want %q", tt.p, got, tt.want)
			}
		})
	}
}

func TestRoundedCellKeyMergesNearbyPoints(t *testing.T) {
	key := RoundedCellKey(4)

	a := Point{Lat: 33.44841, Lng: -112.07401}
	b := Point{Lat: 33.44839, Lng: -112.07399}
	if key(a) != key(b) {
		t.Errorf("points %v and %v should share a cell: %q vs %q", a, b, key(a), key(b))
	}

	far := Point{Lat: 33.4495, Lng: -112.074}
	if key(a) == key(far) {
		t.Errorf("points %v and %v should not share a cell", a, far)
	}

	// Points straddling the equator and prime meridian round into one cell.
	east := Point{Lat: 0.00002, Lng: 0.00003}
	west := Point{Lat: -0.00002, Lng: -0.00003}
	if key(east) != key(west) {
		t.Errorf("points %v and %v should share the zero cell: %q vs %q", east, west, key(east), key(west))
	}
}

func TestGeohashEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat, lng  float64
		precision int
		want      string
	}{
		{name: "san francisco precision 6", lat: 37.7749, lng: -122.4194, precision: 6, want: "9q8yyk"},
		{name: "san francisco precision 4", lat: 37.7749, lng: -122.4194, precision: 4, want: "9q8y"},
		{name: "origin", lat: 0, lng: 0, precision: 5, want: "s0000"},
		{name: "non-positive precision uses default", lat: 37.7749, lng: -122.4194, precision: 0, want: "9q8yyk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeohashEncode(tt.lat, tt.lng, tt.precision); got != tt.want {
				t.Errorf("GeohashEncode(%v, %v, %d) = %q, want %q", tt.lat, tt.lng, tt.precision, got, tt.want)
			}
		})
	}
}

func TestGeohashCellKeyMatchesEncode(t *testing.T) {
	key := GeohashCellKey(6)
	p := Point{Lat: 37.7749, Lng: -122.4194}
	if got, want := key(p), GeohashEncode(p.Lat, p.Lng, 6); got != want {
		t.Errorf("GeohashCellKey()(%v) = %q, want %q", p, got, want)
	}
}
