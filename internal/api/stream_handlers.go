package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gatherpoint/mapfeed/internal/cluster"
	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/mapdata"
	"github.com/gatherpoint/mapfeed/internal/middleware"
	"github.com/gatherpoint/mapfeed/internal/render"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware.
		return true
	},
}

// StreamMessage is one server-to-client frame on the marker stream: a
// progressively growing prefix of the cluster list for the active query.
type StreamMessage struct {
	Type         string          `json:"type"` // "batch" or "error"
	Visible      []MarkerCluster `json:"visible,omitempty"`
	VisibleCount int             `json:"visibleCount"`
	Total        int             `json:"total"`
	Done         bool            `json:"done"`
	Error        *ErrorDetail    `json:"error,omitempty"`
}

// StreamHandlers serves GET /api/map/stream: a websocket that accepts marker
// queries and streams progressive marker batches back. Each query runs the
// nearby stage first for fast feedback, then the complete stage; batches from
// a superseded query are discarded.
type StreamHandlers struct {
	fetcher mapdata.Fetcher
	keyFn   geo.CellKeyFunc
	cfg     render.Config
	clk     clock.Clock
	logger  *slog.Logger
	metrics *render.Metrics

	// now is stubbed in tests.
	now func() time.Time
}

// NewStreamHandlers creates the marker stream endpoint. clk may be a mock
// clock in tests; nil uses the wall clock.
func NewStreamHandlers(fetcher mapdata.Fetcher, keyFn geo.CellKeyFunc, cfg render.Config, clk clock.Clock, logger *slog.Logger, metrics *render.Metrics) *StreamHandlers {
	if keyFn == nil {
		keyFn = geo.RoundedCellKey(geo.DefaultCellDecimals)
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandlers{
		fetcher: fetcher,
		keyFn:   keyFn,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// streamConn serializes writes to one websocket connection. The render
// runner's tick goroutine and the query loop both write frames.
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) send(msg StreamMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Stream handles GET /api/map/stream.
func (h *StreamHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		errCtx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, errCtx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	subscriberID := uuid.New().String()
	h.logger.InfoContext(ctx, "marker stream opened",
		"subscriber_id", subscriberID,
		"request_id", middleware.GetRequestID(ctx))

	sc := &streamConn{conn: conn}

	// One memoizing bucket builder per connection: re-queries that leave a
	// timeframe's membership untouched reuse its cluster list.
	builder := cluster.NewBuilder(h.keyFn)

	runner := render.NewRunner(h.cfg, h.clk, func(visible []cluster.Unified, state render.State, done bool) {
		msg := StreamMessage{
			Type:         "batch",
			Visible:      decorate(visible),
			VisibleCount: state.Visible,
			Total:        state.Total,
			Done:         done,
		}
		if err := sc.send(msg); err != nil {
			h.logger.Warn("failed to write marker batch",
				"subscriber_id", subscriberID, "error", err)
		}
	}, h.logger, h.metrics)

	// Query generation guard: the complete stage of a superseded query must
	// not clobber a newer query's reveal.
	var genMu sync.Mutex
	gen := 0

	defer func() {
		runner.Stop()
		conn.Close()
		h.logger.InfoContext(ctx, "marker stream closed",
			"subscriber_id", subscriberID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("marker stream closed unexpectedly",
					"subscriber_id", subscriberID, "error", err)
			}
			return
		}

		var req MarkerRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			_ = sc.send(StreamMessage{
				Type:  "error",
				Error: &ErrorDetail{Code: ErrCodeBadRequest, Message: "invalid query message"},
			})
			continue
		}

		genMu.Lock()
		gen++
		myGen := gen
		genMu.Unlock()

		// The supersession check and the observe share one critical
		// section so a stale stage cannot land between a newer query's
		// check and its observe.
		h.runQuery(ctx, sc, builder, req, func(clusters []cluster.Unified) bool {
			genMu.Lock()
			defer genMu.Unlock()
			if gen != myGen {
				return false
			}
			runner.Observe(clusters)
			return true
		})
	}
}

// runQuery executes both fetch stages for one query. The nearby stage streams
// immediately; the complete stage re-observes in the background once its
// fuller data arrives. commit hands a cluster list to the render runner and
// reports false when the query has been superseded.
func (h *StreamHandlers) runQuery(ctx context.Context, sc *streamConn, builder *cluster.Builder, req MarkerRequest, commit func([]cluster.Unified) bool) {
	clusters, err := h.fetchStage(ctx, builder, req, StageNearby)
	if err != nil {
		h.sendError(sc, err)
		return
	}
	if !commit(clusters) {
		return
	}

	go func() {
		complete, err := h.fetchStage(ctx, builder, req, StageComplete)
		if err != nil {
			h.logger.Warn("complete stage fetch failed", "error", err)
			return
		}
		commit(complete)
	}()
}

// fetchStage fetches one stage and flattens it into the timeframe-selected
// cluster list plus locations, with the query's filters applied.
func (h *StreamHandlers) fetchStage(ctx context.Context, builder *cluster.Builder, req MarkerRequest, stage string) ([]cluster.Unified, error) {
	var resp *mapdata.Response
	var err error
	if stage == StageComplete {
		resp, err = h.fetcher.GetMapData(ctx, req.Origin(), req.RadiusMeters, req.TimeRange, req.IncludeTicketmaster)
	} else {
		resp, err = h.fetcher.GetNearbyData(ctx, req.Origin(), req.TimeRange, req.IncludeTicketmaster)
	}
	if err != nil {
		return nil, err
	}

	buckets := builder.Build(resp.Events, resp.Locations, h.now())
	selected := cluster.Filter(buckets.Select(cluster.Timeframe(req.TimeRange)), req.Filters)
	locations := cluster.Filter(buckets.Locations, req.Filters)

	flat := make([]cluster.Unified, 0, len(selected)+len(locations))
	flat = append(flat, selected...)
	flat = append(flat, locations...)
	return flat, nil
}

func (h *StreamHandlers) sendError(sc *streamConn, err error) {
	detail := &ErrorDetail{Code: ErrCodeInternal, Message: "failed to fetch map data"}
	if upstreamErr, ok := mapdata.IsUpstreamError(err); ok {
		detail = &ErrorDetail{Code: ErrCodeUpstream, Message: upstreamErr.Error()}
	} else if errors.Is(err, mapdata.ErrInvalidCoordinate) {
		detail = &ErrorDetail{Code: ErrCodeValidation, Message: err.Error()}
	}
	_ = sc.send(StreamMessage{Type: "error", Error: detail})
}
