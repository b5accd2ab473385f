package cluster

import (
	"testing"
	"time"

	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

// Wednesday morning, so the upcoming weekend is Jun 14-15.
var bucketNow = time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)

func TestBuildBuckets_Partition(t *testing.T) {
	today := datedEvent("today", bucketNow.Add(3*time.Hour))
	thisWeek := datedEvent("week", bucketNow.AddDate(0, 0, 2))
	saturday := datedEvent("saturday", time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC))
	farOut := datedEvent("far", bucketNow.AddDate(0, 1, 0))
	undated := event("undated", 33.4484, -112.0740, mapdata.SourceUser)

	buckets := BuildBuckets(
		[]*mapdata.Event{today, thisWeek, saturday, farOut, undated},
		[]*mapdata.Location{location("l1", 33.4484, -112.0740)},
		bucketNow, testKeyFn)

	countItems := func(clusters []Unified) int {
		n := 0
		for _, c := range clusters {
			n += c.Count
		}
		return n
	}

	if got := countItems(buckets.Today); got != 1 {
		t.Errorf("today items = %d, want 1", got)
	}
	// Today's, the +2 day, and Saturday's event all start within 7 days.
	if got := countItems(buckets.Week); got != 3 {
		t.Errorf("week items = %d, want 3", got)
	}
	if got := countItems(buckets.Weekend); got != 1 {
		t.Errorf("weekend items = %d, want 1", got)
	}
	// Undated and far-out events land in fallback only.
	if got := countItems(buckets.Fallback); got != 2 {
		t.Errorf("fallback items = %d, want 2", got)
	}
	if got := countItems(buckets.Locations); got != 1 {
		t.Errorf("location items = %d, want 1", got)
	}
}

func TestBuildBuckets_SundayCountsCurrentWeekend(t *testing.T) {
	sundayNow := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tonight := datedEvent("tonight", time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC))

	buckets := BuildBuckets([]*mapdata.Event{tonight}, nil, sundayNow, testKeyFn)
	if len(buckets.Weekend) != 1 {
		t.Fatalf("weekend clusters = %d, want 1", len(buckets.Weekend))
	}
}

func TestSelect(t *testing.T) {
	buckets := Buckets{
		Today:    []Unified{{Count: 1}},
		Week:     []Unified{{Count: 2}},
		Weekend:  []Unified{{Count: 3}},
		Fallback: []Unified{{Count: 4}},
	}

	tests := []struct {
		tf        Timeframe
		wantCount int
	}{
		{TimeframeToday, 1},
		{TimeframeWeek, 2},
		{TimeframeWeekend, 3},
		{TimeframeFallback, 4},
		{Timeframe("bogus"), 4},
		{Timeframe(""), 4},
	}

	for _, tt := range tests {
		got := buckets.Select(tt.tf)
		if len(got) != 1 || got[0].Count != tt.wantCount {
			t.Errorf("Select(%q) = %v, want count %d", tt.tf, got, tt.wantCount)
		}
	}
}

func TestBuilder_ReusesUnchangedBuckets(t *testing.T) {
	b := NewBuilder(testKeyFn)

	today := datedEvent("today", bucketNow.Add(3*time.Hour))
	farOut := datedEvent("far", bucketNow.AddDate(0, 1, 0))
	locs := []*mapdata.Location{location("l1", 33.4484, -112.0740)}

	first := b.Build([]*mapdata.Event{today, farOut}, locs, bucketNow)

	// Same membership: every bucket must come back with identical slice
	// identity, which downstream uses as the change signal.
	second := b.Build([]*mapdata.Event{today, farOut}, locs, bucketNow)
	if len(second.Today) == 0 || &second.Today[0] != &first.Today[0] {
		t.Error("today bucket was recomputed despite unchanged membership")
	}
	if len(second.Fallback) == 0 || &second.Fallback[0] != &first.Fallback[0] {
		t.Error("fallback bucket was recomputed despite unchanged membership")
	}
	if len(second.Locations) == 0 || &second.Locations[0] != &first.Locations[0] {
		t.Error("locations bucket was recomputed despite unchanged membership")
	}
}

func TestBuilder_RecomputesChangedBucketOnly(t *testing.T) {
	b := NewBuilder(testKeyFn)

	today := datedEvent("today", bucketNow.Add(3*time.Hour))
	farOut := datedEvent("far", bucketNow.AddDate(0, 1, 0))
	locs := []*mapdata.Location{location("l1", 33.4484, -112.0740)}

	first := b.Build([]*mapdata.Event{today, farOut}, locs, bucketNow)

	// Adding a second fallback event changes fallback (and week is untouched
	// since neither far-out event is within the window).
	farOut2 := datedEvent("far2", bucketNow.AddDate(0, 2, 0))
	second := b.Build([]*mapdata.Event{today, farOut, farOut2}, locs, bucketNow)

	if len(second.Today) == 0 || &second.Today[0] != &first.Today[0] {
		t.Error("today bucket should have been reused")
	}
	if len(second.Fallback) != 0 && len(first.Fallback) != 0 && &second.Fallback[0] == &first.Fallback[0] {
		t.Error("fallback bucket should have been recomputed")
	}
	if got := len(second.Fallback); got != 1 {
		t.Errorf("fallback clusters = %d, want 1 (shared cell)", got)
	}
	if second.Fallback[0].Count != 2 {
		t.Errorf("fallback cluster count = %d, want 2", second.Fallback[0].Count)
	}
}
