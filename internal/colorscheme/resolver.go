package colorscheme

import (
	"strings"

	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

// Source scheme keys. These double as the cluster color priority tiers.
const (
	SchemeUserEvent      = "user-event"
	SchemeTicketmaster   = "ticketmaster"
	SchemeAPIEvent       = "api-event"
	SchemeStaticLocation = "static-location"
)

// categorySchemes maps normalized category names to marker colors. Checked
// before the source-type fallback.
var categorySchemes = map[string]Scheme{
	"music":          {Primary: "#8E44AD", Secondary: "#D2B4DE"},
	"live music":     {Primary: "#8E44AD", Secondary: "#D2B4DE"},
	"sports":         {Primary: "#27AE60", Secondary: "#A9DFBF"},
	"arts & theatre": {Primary: "#E67E22", Secondary: "#F5CBA7"},
	"comedy":         {Primary: "#F39C12", Secondary: "#FAD7A0"},
	"food & drink":   {Primary: "#C0392B", Secondary: "#F1948A"},
	"nightlife":      {Primary: "#2C3E50", Secondary: "#85929E"},
	"community":      {Primary: "#16A085", Secondary: "#A2D9CE"},
	"outdoors":       {Primary: "#2ECC71", Secondary: "#ABEBC6"},
	"film":           {Primary: "#34495E", Secondary: "#AEB6BF"},
	"family":         {Primary: "#3498DB", Secondary: "#AED6F1"},
}

// sourceSchemes maps source tiers to marker colors. The api-event scheme is
// the final default.
var sourceSchemes = map[string]Scheme{
	SchemeUserEvent:      {Primary: "#6C5CE7", Secondary: "#C7C0F5"},
	SchemeTicketmaster:   {Primary: "#026CDF", Secondary: "#9CC6F2"},
	SchemeAPIEvent:       {Primary: "#E74C3C", Secondary: "#F5B7B1"},
	SchemeStaticLocation: {Primary: "#7F8C8D", Secondary: "#D5DBDB"},
}

// clusterPriority is the fixed scan order for mixed-source clusters, so a
// cluster's color is deterministic rather than whichever item happened to
// land first.
var clusterPriority = []string{
	SchemeUserEvent,
	SchemeTicketmaster,
	SchemeAPIEvent,
	SchemeStaticLocation,
}

// sourceSchemeKey maps an item's source type to its scheme key.
func sourceSchemeKey(item mapdata.Item) string {
	switch item.Source() {
	case mapdata.SourceUser:
		return SchemeUserEvent
	case mapdata.SourceTicketmaster:
		return SchemeTicketmaster
	case mapdata.SourceStaticLocation:
		return SchemeStaticLocation
	default:
		return SchemeAPIEvent
	}
}

// ForItem resolves an item's color scheme. Resolution order: exact category
// name match, then source-type scheme, then the api-event default. Total
// function; always returns a scheme.
func ForItem(item mapdata.Item) Scheme {
	switch it := item.(type) {
	case *mapdata.Event:
		for _, cat := range it.Categories {
			if s, ok := categorySchemes[strings.ToLower(cat.Name)]; ok {
				return s
			}
		}
	case *mapdata.Location:
		if it.Category != nil {
			if s, ok := categorySchemes[strings.ToLower(it.Category.Name)]; ok {
				return s
			}
		}
	}

	if s, ok := sourceSchemes[sourceSchemeKey(item)]; ok {
		return s
	}
	return sourceSchemes[SchemeAPIEvent]
}

// ClusterPriority returns the scheme for a mixed collection of items: the
// first tier of clusterPriority present in the collection wins. Empty
// collections get the api-event default.
func ClusterPriority(items []mapdata.Item) Scheme {
	present := make(map[string]bool, len(items))
	for _, item := range items {
		present[sourceSchemeKey(item)] = true
	}
	for _, tier := range clusterPriority {
		if present[tier] {
			return sourceSchemes[tier]
		}
	}
	return sourceSchemes[SchemeAPIEvent]
}
