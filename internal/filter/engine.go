package filter

import "github.com/gatherpoint/mapfeed/internal/mapdata"

// State maps filter keys to their enabled state. Keys are freeform and come
// and go with the live item set; there is no fixed schema.
type State map[string]bool

// allFalse reports whether every value in the state is false. An all-false
// state means the user explicitly turned off every filter, which hides
// everything.
func (s State) allFalse() bool {
	for _, v := range s {
		if v {
			return false
		}
	}
	return true
}

// ShouldShow decides whether an item passes the active filters. The policy is
// OR-biased and default-open: filters are additive conveniences rather than
// strict whitelists, so an item with no matching rule is shown.
//
// Precedence, short-circuiting on the first definitive match:
//  1. empty state: show
//  2. show-all set true: show
//  3. every value false: hide
//  4. source-type key, if present, decides
//  5. event category keys scan in order: first true wins, else last false wins
//  6. location category key (singular), if present, decides
//  7. venue-type key, only when the location has no category name
//  8. nothing matched: show
func ShouldShow(item mapdata.Item, s State) bool {
	if len(s) == 0 {
		return true
	}
	if s[KeyShowAll] {
		return true
	}
	if s.allFalse() {
		return false
	}

	if key := SourceKey(item); key != "" {
		if enabled, ok := s[key]; ok {
			return enabled
		}
	}

	switch it := item.(type) {
	case *mapdata.Event:
		hidden := false
		for _, cat := range it.Categories {
			if enabled, ok := s[CategoryKey(cat.Name)]; ok {
				if enabled {
					return true
				}
				hidden = true
			}
		}
		if hidden {
			return false
		}
	case *mapdata.Location:
		if it.Category != nil && it.Category.Name != "" {
			if enabled, ok := s[LocationKey(it.Category.Name)]; ok {
				return enabled
			}
		} else if it.Type != "" {
			if enabled, ok := s[TypeKey(it.Type)]; ok {
				return enabled
			}
		}
	}

	return true
}

// FilterEvents returns the events passing the active filters.
func FilterEvents(events []*mapdata.Event, s State) []*mapdata.Event {
	kept := make([]*mapdata.Event, 0, len(events))
	for _, e := range events {
		if ShouldShow(e, s) {
			kept = append(kept, e)
		}
	}
	return kept
}

// FilterLocations returns the locations passing the active filters.
func FilterLocations(locations []*mapdata.Location, s State) []*mapdata.Location {
	kept := make([]*mapdata.Location, 0, len(locations))
	for _, l := range locations {
		if ShouldShow(l, s) {
			kept = append(kept, l)
		}
	}
	return kept
}

// AvailableKeys derives the filter key set for the current items, preserving
// first-seen order. The filter UI builds its toggles from this.
func AvailableKeys(events []*mapdata.Event, locations []*mapdata.Location) []string {
	seen := make(map[string]bool)
	var keys []string

	add := func(item mapdata.Item) {
		for _, k := range KeysForItem(item) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	for _, e := range events {
		add(e)
	}
	for _, l := range locations {
		add(l)
	}
	return keys
}
