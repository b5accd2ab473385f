// Package mapdata defines the unified map item model and the client for the
// upstream events backend that serves nearby and full-radius map data.
package mapdata

import (
	"time"

	"github.com/gatherpoint/mapfeed/internal/geo"
)

// SourceType tags the provenance of a map item. It drives both filtering and
// marker color resolution.
type SourceType string

// Known source types.
const (
	SourceUser             SourceType = "user"
	SourceTicketmaster     SourceType = "ticketmaster"
	SourceDatabaseFeatured SourceType = "database-featured"
	SourceStaticLocation   SourceType = "static-location"
)

// Category describes an item category used for filter bucket keys and color
// resolution.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Item is the sum type over the two map item variants, Event and Location.
// Code that treats both variants uniformly (distance filtering, clustering)
// works through this interface; variant-specific logic type-switches.
type Item interface {
	// ItemID returns the item's opaque identifier, unique within its variant.
	ItemID() string
	// Coord returns the item's coordinate.
	Coord() geo.Point
	// Source returns the item's provenance tag.
	Source() SourceType

	// mapItem restricts implementations to this package's variants.
	mapItem()
}

// Event is a time-bound happening shown on the map.
type Event struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ImageURLs      []string   `json:"imageUrls,omitempty"`
	Coordinate     geo.Point  `json:"coordinate"`
	Categories     []Category `json:"categories,omitempty"`
	SourceType     SourceType `json:"sourceType"`
	DistanceKm     *float64   `json:"distanceKm,omitempty"`
	StartDatetime  time.Time  `json:"startDatetime"`
	EndDatetime    time.Time  `json:"endDatetime"`
	AttendeeCount  int        `json:"attendeeCount"`
	IsTicketmaster bool       `json:"isTicketmaster"`
}

// ItemID implements Item.
func (e *Event) ItemID() string { return e.ID }

// Coord implements Item.
func (e *Event) Coord() geo.Point { return e.Coordinate }

// Source implements Item.
func (e *Event) Source() SourceType { return e.SourceType }

func (e *Event) mapItem() {}

// Location is a fixed venue or point of interest shown on the map.
type Location struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ImageURLs  []string   `json:"imageUrls,omitempty"`
	Coordinate geo.Point  `json:"coordinate"`
	Category   *Category  `json:"category,omitempty"`
	SourceType SourceType `json:"sourceType"`
	DistanceKm *float64   `json:"distanceKm,omitempty"`

	// Type is the free-text venue type, e.g. "restaurant" or "beach".
	Type   string   `json:"type,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
}

// ItemID implements Item.
func (l *Location) ItemID() string { return l.ID }

// Coord implements Item.
func (l *Location) Coord() geo.Point { return l.Coordinate }

// Source implements Item.
func (l *Location) Source() SourceType { return l.SourceType }

func (l *Location) mapItem() {}

// User is the opaque authenticated-user payload passed through from the
// upstream backend. Authentication itself is out of scope here.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Response is the upstream map data payload for one fetch stage.
type Response struct {
	Events          []*Event    `json:"events"`
	Locations       []*Location `json:"locations"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            *User       `json:"user,omitempty"`
}

// HealthStatus is the upstream health endpoint payload.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// AnnotateDistances sets DistanceKm on every event and location relative to
// origin. Distances are derived at fetch time and are not authoritative;
// items with malformed coordinates are left unannotated.
func AnnotateDistances(resp *Response, origin geo.Point) {
	for _, e := range resp.Events {
		if e.Coordinate.Validate() != nil {
			continue
		}
		d := geo.DistanceKm(origin, e.Coordinate)
		e.DistanceKm = &d
	}
	for _, l := range resp.Locations {
		if l.Coordinate.Validate() != nil {
			continue
		}
		d := geo.DistanceKm(origin, l.Coordinate)
		l.DistanceKm = &d
	}
}
