// Package filter evaluates the user's dynamic map filter selections against
// map items. Filter keys are freeform strings derived from live data; the
// derivation functions here are shared between the key generator and the
// evaluator so key formatting never drifts between producer and consumer.
package filter

import (
	"strings"

	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

// KeyShowAll short-circuits evaluation: when set true, every item is shown.
const KeyShowAll = "show-all"

// Source-type filter keys.
const (
	KeyCommunityEvents = "community-events"
	KeyTicketedEvents  = "ticketed-events"
	KeyFeaturedEvents  = "featured-events"
)

// Key prefixes for category-derived filter keys.
const (
	eventKeyPrefix    = "event-"
	locationKeyPrefix = "location-"
	typeKeyPrefix     = "type-"
)

// Slug normalizes a display name to a filter key fragment: lowercase with
// whitespace runs collapsed to single hyphens.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// SourceKey returns the source-type filter key for an item, or "" when the
// source has no filter key (static locations are filtered by category/type
// instead).
func SourceKey(item mapdata.Item) string {
	switch item.Source() {
	case mapdata.SourceUser:
		return KeyCommunityEvents
	case mapdata.SourceTicketmaster:
		return KeyTicketedEvents
	case mapdata.SourceDatabaseFeatured:
		return KeyFeaturedEvents
	default:
		return ""
	}
}

// CategoryKey returns the event-category filter key for a category name,
// e.g. "event-live-music".
func CategoryKey(name string) string {
	return eventKeyPrefix + Slug(name)
}

// LocationKey returns the location-category filter key for a category name,
// e.g. "location-restaurant".
func LocationKey(name string) string {
	return locationKeyPrefix + Slug(name)
}

// TypeKey returns the venue-type filter key, e.g. "type-beach". Only
// consulted for locations without a category name.
func TypeKey(venueType string) string {
	return typeKeyPrefix + Slug(venueType)
}

// KeysForItem returns every filter key an item can match, in evaluation
// order. Used to populate the filter UI from the current item set.
func KeysForItem(item mapdata.Item) []string {
	var keys []string
	if k := SourceKey(item); k != "" {
		keys = append(keys, k)
	}

	switch it := item.(type) {
	case *mapdata.Event:
		for _, cat := range it.Categories {
			keys = append(keys, CategoryKey(cat.Name))
		}
	case *mapdata.Location:
		if it.Category != nil && it.Category.Name != "" {
			keys = append(keys, LocationKey(it.Category.Name))
		} else if it.Type != "" {
			keys = append(keys, TypeKey(it.Type))
		}
	}
	return keys
}
