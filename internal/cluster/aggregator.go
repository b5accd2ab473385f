// Package cluster groups filtered map items that share a rendering cell into
// single markers, organized into independently derived timeframe buckets.
package cluster

import (
	"github.com/gatherpoint/mapfeed/internal/filter"
	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

// Type discriminates the two cluster variants.
type Type string

// Cluster variants.
const (
	TypeEvent    Type = "event"
	TypeLocation Type = "location"
)

// Unified is one map marker: the items sharing a rendering cell, a count
// badge, and a representative main item for marker image and category.
//
// Invariants: exactly one of Events/Locations is non-empty, matching Type;
// MainEvent is always index 0 of the non-empty sequence; Count is the total
// item count.
type Unified struct {
	// Coordinate is [lng, lat], taken from the cluster's first item.
	Coordinate [2]float64 `json:"coordinate"`

	Type      Type                `json:"type"`
	Events    []*mapdata.Event    `json:"events,omitempty"`
	Locations []*mapdata.Location `json:"locations,omitempty"`

	// MainEvent is the representative item (the first one placed in the
	// cell), not a statistical centroid. The name covers both variants.
	MainEvent mapdata.Item `json:"mainEvent"`

	Count int `json:"count"`
}

// BuildEventClusters groups events by rendering cell, one cluster per cell.
// Cell order follows first appearance in the input, so output is
// deterministic for a given input order. Every input item lands in exactly
// one cluster.
func BuildEventClusters(events []*mapdata.Event, keyFn geo.CellKeyFunc) []Unified {
	var clusters []Unified
	index := make(map[string]int)

	for _, e := range events {
		key := keyFn(e.Coordinate)
		i, ok := index[key]
		if !ok {
			index[key] = len(clusters)
			clusters = append(clusters, Unified{
				Coordinate: [2]float64{e.Coordinate.Lng, e.Coordinate.Lat},
				Type:       TypeEvent,
				MainEvent:  e,
			})
			i = len(clusters) - 1
		}
		clusters[i].Events = append(clusters[i].Events, e)
		clusters[i].Count++
	}
	return clusters
}

// BuildLocationClusters groups locations by rendering cell, mirroring
// BuildEventClusters.
func BuildLocationClusters(locations []*mapdata.Location, keyFn geo.CellKeyFunc) []Unified {
	var clusters []Unified
	index := make(map[string]int)

	for _, l := range locations {
		key := keyFn(l.Coordinate)
		i, ok := index[key]
		if !ok {
			index[key] = len(clusters)
			clusters = append(clusters, Unified{
				Coordinate: [2]float64{l.Coordinate.Lng, l.Coordinate.Lat},
				Type:       TypeLocation,
				MainEvent:  l,
			})
			i = len(clusters) - 1
		}
		clusters[i].Locations = append(clusters[i].Locations, l)
		clusters[i].Count++
	}
	return clusters
}

// Filter applies the active filters to every item inside each cluster, drops
// clusters left empty, and recomputes MainEvent and Count from the surviving
// items so a filtered-out representative is never displayed.
func Filter(clusters []Unified, s filter.State) []Unified {
	kept := make([]Unified, 0, len(clusters))
	for _, c := range clusters {
		c.Events = filter.FilterEvents(c.Events, s)
		c.Locations = filter.FilterLocations(c.Locations, s)
		c.Count = len(c.Events) + len(c.Locations)
		if c.Count == 0 {
			continue
		}

		switch {
		case len(c.Events) > 0:
			c.MainEvent = c.Events[0]
		default:
			c.MainEvent = c.Locations[0]
		}
		kept = append(kept, c)
	}
	return kept
}
