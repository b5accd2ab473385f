package colorscheme

import (
	"testing"

	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

func TestForItem_CategoryMatch(t *testing.T) {
	tests := []struct {
		name     string
		item     mapdata.Item
		wantPrim string
	}{
		{
			name: "event category wins over source",
			item: &mapdata.Event{
				SourceType: mapdata.SourceUser,
				Categories: []mapdata.Category{{Name: "Music"}},
			},
			wantPrim: "#8E44AD",
		},
		{
			name: "category match is case insensitive",
			item: &mapdata.Event{
				SourceType: mapdata.SourceTicketmaster,
				Categories: []mapdata.Category{{Name: "ARTS & THEATRE"}},
			},
			wantPrim: "#E67E22",
		},
		{
			name: "first known category wins",
			item: &mapdata.Event{
				SourceType: mapdata.SourceUser,
				Categories: []mapdata.Category{{Name: "Underwater Basket Weaving"}, {Name: "Sports"}},
			},
			wantPrim: "#27AE60",
		},
		{
			name: "location category match",
			item: &mapdata.Location{
				SourceType: mapdata.SourceStaticLocation,
				Category:   &mapdata.Category{Name: "Outdoors"},
			},
			wantPrim: "#2ECC71",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForItem(tt.item)
			if got.Primary != tt.wantPrim {
				t.Errorf("ForItem().Primary = %s, want %s", got.Primary, tt.wantPrim)
			}
		})
	}
}

func TestForItem_SourceFallback(t *testing.T) {
	tests := []struct {
		name     string
		item     mapdata.Item
		wantPrim string
	}{
		{
			name:     "user event",
			item:     &mapdata.Event{SourceType: mapdata.SourceUser},
			wantPrim: sourceSchemes[SchemeUserEvent].Primary,
		},
		{
			name:     "ticketmaster event",
			item:     &mapdata.Event{SourceType: mapdata.SourceTicketmaster},
			wantPrim: sourceSchemes[SchemeTicketmaster].Primary,
		},
		{
			name:     "static location",
			item:     &mapdata.Location{SourceType: mapdata.SourceStaticLocation},
			wantPrim: sourceSchemes[SchemeStaticLocation].Primary,
		},
		{
			name:     "unknown source defaults to api-event",
			item:     &mapdata.Event{SourceType: mapdata.SourceType("mystery")},
			wantPrim: sourceSchemes[SchemeAPIEvent].Primary,
		},
		{
			name:     "unknown category falls through to source",
			item:     &mapdata.Event{SourceType: mapdata.SourceUser, Categories: []mapdata.Category{{Name: "Interpretive Dance"}}},
			wantPrim: sourceSchemes[SchemeUserEvent].Primary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForItem(tt.item)
			if got.Primary != tt.wantPrim {
				t.Errorf("ForItem().Primary = %s, want %s", got.Primary, tt.wantPrim)
			}
		})
	}
}

func TestForItem_AlwaysValid(t *testing.T) {
	items := []mapdata.Item{
		&mapdata.Event{SourceType: mapdata.SourceUser},
		&mapdata.Event{SourceType: mapdata.SourceType("")},
		&mapdata.Event{Categories: []mapdata.Category{{Name: "nightlife"}}},
		&mapdata.Location{},
		&mapdata.Location{Category: &mapdata.Category{}},
	}

	for _, item := range items {
		s := ForItem(item)
		if err := s.Validate(); err != nil {
			t.Errorf("ForItem(%+v) returned invalid scheme %+v: %v", item, s, err)
		}
	}
}

func TestClusterPriority(t *testing.T) {
	user := &mapdata.Event{SourceType: mapdata.SourceUser}
	tm := &mapdata.Event{SourceType: mapdata.SourceTicketmaster}
	api := &mapdata.Event{SourceType: mapdata.SourceType("other")}
	loc := &mapdata.Location{SourceType: mapdata.SourceStaticLocation}

	tests := []struct {
		name     string
		items    []mapdata.Item
		wantPrim string
	}{
		{
			name:     "user events outrank everything",
			items:    []mapdata.Item{loc, tm, user},
			wantPrim: sourceSchemes[SchemeUserEvent].Primary,
		},
		{
			name:     "ticketmaster outranks api and locations",
			items:    []mapdata.Item{loc, api, tm},
			wantPrim: sourceSchemes[SchemeTicketmaster].Primary,
		},
		{
			name:     "api events outrank locations",
			items:    []mapdata.Item{loc, api},
			wantPrim: sourceSchemes[SchemeAPIEvent].Primary,
		},
		{
			name:     "locations only",
			items:    []mapdata.Item{loc},
			wantPrim: sourceSchemes[SchemeStaticLocation].Primary,
		},
		{
			name:     "empty collection defaults to api-event",
			items:    nil,
			wantPrim: sourceSchemes[SchemeAPIEvent].Primary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClusterPriority(tt.items)
			if got.Primary != tt.wantPrim {
				t.Errorf("ClusterPriority().Primary = %s, want %s", got.Primary, tt.wantPrim)
			}
		})
	}
}

func TestSchemeTables_AllValid(t *testing.T) {
	for name, s := range categorySchemes {
		if err := s.Validate(); err != nil {
			t.Errorf("category %q has invalid scheme: %v", name, err)
		}
	}
	for name, s := range sourceSchemes {
		if err := s.Validate(); err != nil {
			t.Errorf("source %q has invalid scheme: %v", name, err)
		}
	}
}
