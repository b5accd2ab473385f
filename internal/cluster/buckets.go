package cluster

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/mapdata"
)

// Timeframe names the independent filtering contexts the map UI can switch
// between without recomputing the others.
type Timeframe string

// Timeframe buckets.
const (
	TimeframeToday    Timeframe = "today"
	TimeframeWeek     Timeframe = "week"
	TimeframeWeekend  Timeframe = "weekend"
	TimeframeFallback Timeframe = "fallback"
)

// Buckets holds the five parallel cluster lists, one per timeframe context
// plus the static locations list. A fixed record rather than a dynamic
// collection keeps the timeframes decoupled.
type Buckets struct {
	Today     []Unified `json:"today"`
	Week      []Unified `json:"week"`
	Weekend   []Unified `json:"weekend"`
	Fallback  []Unified `json:"fallback"`
	Locations []Unified `json:"locations"`
}

// Select returns the event cluster list for a timeframe. Unknown timeframes
// fall back to the fallback bucket.
func (b Buckets) Select(tf Timeframe) []Unified {
	switch tf {
	case TimeframeToday:
		return b.Today
	case TimeframeWeek:
		return b.Week
	case TimeframeWeekend:
		return b.Weekend
	default:
		return b.Fallback
	}
}

// eventInToday reports whether the event starts on the same calendar day as
// now, in now's location.
func eventInToday(e *mapdata.Event, now time.Time) bool {
	if e.StartDatetime.IsZero() {
		return false
	}
	y1, m1, d1 := now.Date()
	y2, m2, d2 := e.StartDatetime.In(now.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// eventInWeek reports whether the event starts within the next seven days.
func eventInWeek(e *mapdata.Event, now time.Time) bool {
	if e.StartDatetime.IsZero() {
		return false
	}
	start := startOfDay(now)
	return !e.StartDatetime.Before(start) && e.StartDatetime.Before(start.AddDate(0, 0, 7))
}

// eventInWeekend reports whether the event starts on the upcoming Saturday or
// Sunday. When now already falls on a weekend, that weekend counts.
func eventInWeekend(e *mapdata.Event, now time.Time) bool {
	if e.StartDatetime.IsZero() {
		return false
	}

	// Walk forward to the next Saturday; a Sunday "today" belongs to the
	// weekend already in progress.
	day := startOfDay(now)
	for day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	weekendStart := day
	if day.Weekday() == time.Sunday {
		weekendStart = day.AddDate(0, 0, -1)
	}
	weekendEnd := weekendStart.AddDate(0, 0, 2)

	t := e.StartDatetime.In(now.Location())
	return !t.Before(weekendStart) && t.Before(weekendEnd)
}

// eventInFallback reports whether the event belongs to the catch-all bucket:
// undated events and events beyond the week window.
func eventInFallback(e *mapdata.Event, now time.Time) bool {
	return !eventInToday(e, now) && !eventInWeek(e, now) && !eventInWeekend(e, now)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BuildBuckets derives all five cluster lists from scratch. Each timeframe is
// computed independently; an event may appear in several timeframe buckets
// (today's events are also this week's events).
func BuildBuckets(events []*mapdata.Event, locations []*mapdata.Location, now time.Time, keyFn geo.CellKeyFunc) Buckets {
	var today, week, weekend, fallback []*mapdata.Event
	for _, e := range events {
		if eventInToday(e, now) {
			today = append(today, e)
		}
		if eventInWeek(e, now) {
			week = append(week, e)
		}
		if eventInWeekend(e, now) {
			weekend = append(weekend, e)
		}
		if eventInFallback(e, now) {
			fallback = append(fallback, e)
		}
	}

	return Buckets{
		Today:     BuildEventClusters(today, keyFn),
		Week:      BuildEventClusters(week, keyFn),
		Weekend:   BuildEventClusters(weekend, keyFn),
		Fallback:  BuildEventClusters(fallback, keyFn),
		Locations: BuildLocationClusters(locations, keyFn),
	}
}

// Builder memoizes per-bucket cluster lists so switching timeframes or
// refreshing one input does not recompute untouched buckets. Safe for
// concurrent use.
type Builder struct {
	keyFn geo.CellKeyFunc

	mu     sync.Mutex
	sigs   [5]uint64
	cached Buckets
	primed bool
}

// NewBuilder creates a memoizing bucket builder using the given cell key
// function.
func NewBuilder(keyFn geo.CellKeyFunc) *Builder {
	return &Builder{keyFn: keyFn}
}

// Build returns buckets for the inputs, reusing the previous cluster list for
// any bucket whose membership is unchanged. Reuse preserves slice identity,
// which downstream consumers use as the "list changed" signal.
func (b *Builder) Build(events []*mapdata.Event, locations []*mapdata.Location, now time.Time) Buckets {
	var today, week, weekend, fallback []*mapdata.Event
	for _, e := range events {
		if eventInToday(e, now) {
			today = append(today, e)
		}
		if eventInWeek(e, now) {
			week = append(week, e)
		}
		if eventInWeekend(e, now) {
			weekend = append(weekend, e)
		}
		if eventInFallback(e, now) {
			fallback = append(fallback, e)
		}
	}

	sigs := [5]uint64{
		eventSetSignature(today),
		eventSetSignature(week),
		eventSetSignature(weekend),
		eventSetSignature(fallback),
		locationSetSignature(locations),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := Buckets{}
	if b.primed && sigs[0] == b.sigs[0] {
		out.Today = b.cached.Today
	} else {
		out.Today = BuildEventClusters(today, b.keyFn)
	}
	if b.primed && sigs[1] == b.sigs[1] {
		out.Week = b.cached.Week
	} else {
		out.Week = BuildEventClusters(week, b.keyFn)
	}
	if b.primed && sigs[2] == b.sigs[2] {
		out.Weekend = b.cached.Weekend
	} else {
		out.Weekend = BuildEventClusters(weekend, b.keyFn)
	}
	if b.primed && sigs[3] == b.sigs[3] {
		out.Fallback = b.cached.Fallback
	} else {
		out.Fallback = BuildEventClusters(fallback, b.keyFn)
	}
	if b.primed && sigs[4] == b.sigs[4] {
		out.Locations = b.cached.Locations
	} else {
		out.Locations = BuildLocationClusters(locations, b.keyFn)
	}

	b.sigs = sigs
	b.cached = out
	b.primed = true
	return out
}

// eventSetSignature hashes the ordered ID set of a bucket's members.
func eventSetSignature(events []*mapdata.Event) uint64 {
	h := fnv.New64a()
	for _, e := range events {
		h.Write([]byte(e.ID))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func locationSetSignature(locations []*mapdata.Location) uint64 {
	h := fnv.New64a()
	for _, l := range locations {
		h.Write([]byte(l.ID))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
