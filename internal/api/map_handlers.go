package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/gatherpoint/mapfeed/internal/cluster"
	"github.com/gatherpoint/mapfeed/internal/colorscheme"
	"github.com/gatherpoint/mapfeed/internal/filter"
	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/mapdata"
	"github.com/gatherpoint/mapfeed/internal/middleware"
)

// Fetch stages accepted by the marker endpoints.
const (
	StageNearby   = "nearby"
	StageComplete = "complete"
)

// MapHandlers serves the marker aggregation endpoints: one-shot bucketed
// markers and the available filter key listing.
type MapHandlers struct {
	fetcher mapdata.Fetcher
	keyFn   geo.CellKeyFunc
	logger  *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewMapHandlers creates the marker endpoints backed by the given fetcher.
func NewMapHandlers(fetcher mapdata.Fetcher, keyFn geo.CellKeyFunc, logger *slog.Logger) *MapHandlers {
	if keyFn == nil {
		keyFn = geo.RoundedCellKey(geo.DefaultCellDecimals)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MapHandlers{
		fetcher: fetcher,
		keyFn:   keyFn,
		logger:  logger,
		now:     time.Now,
	}
}

// MarkerRequest is the body for POST /api/map/markers and the query message
// for the websocket stream.
type MarkerRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Stage selects the fetch pass: "nearby" (default) or "complete".
	Stage string `json:"stage,omitempty"`

	// RadiusMeters applies to the complete stage only; zero means the
	// default full radius.
	RadiusMeters float64 `json:"radiusMeters,omitempty"`

	TimeRange           string       `json:"timeRange,omitempty"`
	IncludeTicketmaster bool         `json:"includeTicketmaster"`
	Filters             filter.State `json:"filters,omitempty"`
}

// Origin returns the request coordinate.
func (r MarkerRequest) Origin() geo.Point {
	return geo.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// MarkerCluster is a cluster decorated with its resolved color scheme.
type MarkerCluster struct {
	cluster.Unified
	Scheme colorscheme.Scheme `json:"scheme"`
}

// MarkerResponse is the bucketed marker payload for one fetch stage.
type MarkerResponse struct {
	Today     []MarkerCluster `json:"today"`
	Week      []MarkerCluster `json:"week"`
	Weekend   []MarkerCluster `json:"weekend"`
	Fallback  []MarkerCluster `json:"fallback"`
	Locations []MarkerCluster `json:"locations"`

	FilterKeys      []string      `json:"filterKeys"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            *mapdata.User `json:"user,omitempty"`
}

// Markers handles POST /api/map/markers: fetch, filter, cluster into the five
// timeframe buckets, and resolve marker colors.
func (h *MapHandlers) Markers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req MarkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	resp, err := h.fetch(r, req)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}

	payload := h.buildResponse(resp, req.Filters)
	if err := WriteJSON(w, http.StatusOK, payload); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write marker response", "error", err)
	}
}

// Filters handles GET /api/map/filters: runs the nearby stage for the given
// coordinate and returns the filter keys derivable from its items, in
// first-appearance order.
func (h *MapHandlers) Filters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "latitude and longitude query parameters are required")
		return
	}

	includeTM := q.Get("includeTicketmaster") == "true"

	resp, err := h.fetcher.GetNearbyData(r.Context(), geo.Point{Lat: lat, Lng: lng}, q.Get("timeRange"), includeTM)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}

	keys := filter.AvailableKeys(resp.Events, resp.Locations)
	out := struct {
		Keys []string `json:"keys"`
	}{Keys: keys}
	if err := WriteJSON(w, http.StatusOK, out); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write filter response", "error", err)
	}
}

// fetch dispatches to the requested stage.
func (h *MapHandlers) fetch(r *http.Request, req MarkerRequest) (*mapdata.Response, error) {
	switch req.Stage {
	case StageComplete:
		return h.fetcher.GetMapData(r.Context(), req.Origin(), req.RadiusMeters, req.TimeRange, req.IncludeTicketmaster)
	case StageNearby, "":
		return h.fetcher.GetNearbyData(r.Context(), req.Origin(), req.TimeRange, req.IncludeTicketmaster)
	default:
		return nil, errUnknownStage
	}
}

var errUnknownStage = errors.New("unknown fetch stage")

// buildResponse runs the post-fetch pipeline: bucket the items into the five
// timeframe contexts, apply the active filters inside each cluster, and
// resolve colors.
func (h *MapHandlers) buildResponse(resp *mapdata.Response, filters filter.State) MarkerResponse {
	buckets := cluster.BuildBuckets(resp.Events, resp.Locations, h.now(), h.keyFn)

	return MarkerResponse{
		Today:     decorate(cluster.Filter(buckets.Today, filters)),
		Week:      decorate(cluster.Filter(buckets.Week, filters)),
		Weekend:   decorate(cluster.Filter(buckets.Weekend, filters)),
		Fallback:  decorate(cluster.Filter(buckets.Fallback, filters)),
		Locations: decorate(cluster.Filter(buckets.Locations, filters)),

		FilterKeys:      filter.AvailableKeys(resp.Events, resp.Locations),
		IsAuthenticated: resp.IsAuthenticated,
		User:            resp.User,
	}
}

// writeFetchError maps pipeline errors to the API error envelope.
func (h *MapHandlers) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	var code, message string
	switch {
	case errors.Is(err, mapdata.ErrInvalidCoordinate):
		code, message = ErrCodeValidation, err.Error()
	case errors.Is(err, errUnknownStage):
		code, message = ErrCodeValidation, `stage must be "nearby" or "complete"`
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		code, message = ErrCodeUpstream, "events backend temporarily unavailable"
	default:
		if upstreamErr, ok := mapdata.IsUpstreamError(err); ok {
			code, message = ErrCodeUpstream, upstreamErr.Error()
			break
		}
		h.logger.ErrorContext(r.Context(), "marker fetch failed", "error", err)
		code, message = ErrCodeInternal, "failed to fetch map data"
	}

	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, StatusCodeMapping(code), code, message)
}

// decorate resolves the display color scheme for each cluster from its
// members in priority order.
func decorate(clusters []cluster.Unified) []MarkerCluster {
	out := make([]MarkerCluster, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, MarkerCluster{
			Unified: c,
			Scheme:  colorscheme.ClusterPriority(clusterItems(c)),
		})
	}
	return out
}

// clusterItems flattens a cluster's members into the item interface.
func clusterItems(c cluster.Unified) []mapdata.Item {
	items := make([]mapdata.Item, 0, len(c.Events)+len(c.Locations))
	for _, e := range c.Events {
		items = append(items, e)
	}
	for _, l := range c.Locations {
		items = append(items, l)
	}
	return items
}
