package filter

import (
	"reflect"
	"testing"

	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

func userEvent(categories ...string) *mapdata.Event {
	e := &mapdata.Event{ID: "e1", Name: "Test Event", SourceType: mapdata.SourceUser}
	for _, name := range categories {
		e.Categories = append(e.Categories, mapdata.Category{Name: name})
	}
	return e
}

func ticketmasterEvent() *mapdata.Event {
	return &mapdata.Event{ID: "e2", Name: "Arena Show", SourceType: mapdata.SourceTicketmaster, IsTicketmaster: true}
}

func categorizedLocation(category string) *mapdata.Location {
	l := &mapdata.Location{ID: "l1", Name: "Venue", SourceType: mapdata.SourceStaticLocation}
	if category != "" {
		l.Category = &mapdata.Category{Name: category}
	}
	return l
}

func TestShouldShow(t *testing.T) {
	tests := []struct {
		name  string
		item  mapdata.Item
		state State
		want  bool
	}{
		{
			name:  "empty state shows everything",
			item:  userEvent("Live Music"),
			state: State{},
			want:  true,
		},
		{
			name:  "nil state shows everything",
			item:  ticketmasterEvent(),
			state: nil,
			want:  true,
		},
		{
			name:  "show-all overrides other false keys",
			item:  ticketmasterEvent(),
			state: State{KeyShowAll: true, KeyTicketedEvents: false},
			want:  true,
		},
		{
			name:  "all false hides everything",
			item:  userEvent("Live Music"),
			state: State{KeyCommunityEvents: false, "event-live-music": false},
			want:  false,
		},
		{
			name:  "source key decides for community event",
			item:  userEvent("Live Music"),
			state: State{KeyCommunityEvents: true, "event-live-music": false},
			want:  true,
		},
		{
			name:  "source key hides ticketed events",
			item:  ticketmasterEvent(),
			state: State{KeyTicketedEvents: false, KeyCommunityEvents: true},
			want:  false,
		},
		{
			name:  "category key first true wins",
			item:  userEvent("Live Music", "Food & Drink"),
			state: State{"event-food-&-drink": false, "event-live-music": true},
			want:  true,
		},
		{
			name:  "category keys all false hide",
			item:  userEvent("Live Music", "Food & Drink"),
			state: State{"event-live-music": false, "event-food-&-drink": false, KeyTicketedEvents: true},
			want:  false,
		},
		{
			name:  "unmatched item default-open",
			item:  userEvent("Live Music"),
			state: State{"event-sports": false, KeyTicketedEvents: true},
			want:  true,
		},
		{
			name:  "location category key decides",
			item:  categorizedLocation("Outdoors"),
			state: State{"location-outdoors": false, KeyCommunityEvents: true},
			want:  false,
		},
		{
			name: "venue type consulted only without category",
			item: &mapdata.Location{
				ID: "l2", SourceType: mapdata.SourceStaticLocation, Type: "beach",
			},
			state: State{"type-beach": true, "location-beach": false},
			want:  true,
		},
		{
			name:  "category takes precedence over venue type",
			item:  &mapdata.Location{ID: "l3", SourceType: mapdata.SourceStaticLocation, Type: "beach", Category: &mapdata.Category{Name: "Outdoors"}},
			state: State{"type-beach": true, "location-outdoors": false},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldShow(tt.item, tt.state); got != tt.want {
				t.Errorf("ShouldShow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterEvents(t *testing.T) {
	events := []*mapdata.Event{
		userEvent("Live Music"),
		ticketmasterEvent(),
	}

	kept := FilterEvents(events, State{KeyTicketedEvents: false, KeyCommunityEvents: true})
	if len(kept) != 1 {
		t.Fatalf("kept %d events, want 1", len(kept))
	}
	if kept[0].SourceType != mapdata.SourceUser {
		t.Errorf("kept event source = %s, want user", kept[0].SourceType)
	}
}

func TestFilterLocations(t *testing.T) {
	locations := []*mapdata.Location{
		categorizedLocation("Outdoors"),
		categorizedLocation("Restaurant"),
	}

	kept := FilterLocations(locations, State{"location-restaurant": false, "location-outdoors": true})
	if len(kept) != 1 {
		t.Fatalf("kept %d locations, want 1", len(kept))
	}
	if kept[0].Category.Name != "Outdoors" {
		t.Errorf("kept location category = %s, want Outdoors", kept[0].Category.Name)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Live Music", "live-music"},
		{"Food & Drink", "food-&-drink"},
		{"  Arts   and  Theatre ", "arts-and-theatre"},
		{"outdoors", "outdoors"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeysForItem(t *testing.T) {
	tests := []struct {
		name string
		item mapdata.Item
		want []string
	}{
		{
			name: "event with categories",
			item: userEvent("Live Music", "Food & Drink"),
			want: []string{KeyCommunityEvents, "event-live-music", "event-food-&-drink"},
		},
		{
			name: "location with category",
			item: categorizedLocation("Outdoors"),
			want: []string{"location-outdoors"},
		},
		{
			name: "location falls back to venue type",
			item: &mapdata.Location{ID: "l2", SourceType: mapdata.SourceStaticLocation, Type: "beach"},
			want: []string{"type-beach"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeysForItem(tt.item); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("KeysForItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableKeys(t *testing.T) {
	events := []*mapdata.Event{
		userEvent("Live Music"),
		userEvent("Live Music"), // duplicate keys collapse
		ticketmasterEvent(),
	}
	locations := []*mapdata.Location{categorizedLocation("Outdoors")}

	got := AvailableKeys(events, locations)
	want := []string{KeyCommunityEvents, "event-live-music", KeyTicketedEvents, "location-outdoors"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableKeys() = %v, want %v", got, want)
	}
}
