package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/matching"
	"github.com/kirillkom/findit/internal/core/ports"
	"github.com/kirillkom/findit/internal/observability/metrics"
)

const (
	serviceName      = "findit-api"
	maxReportBodyLen = 64 << 10
)

type Router struct {
	cfg      config.Config
	reporter ports.ItemReporter
	items    ports.ItemReader
	finder   ports.MatchFinder
	stored   ports.MatchReader

	metrics  *metrics.HTTPServerMetrics
	breakers func() map[string]string
	logger   *slog.Logger
	openapi  routers.Router
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

// WithBreakerStates exposes circuit breaker states on /healthz.
func WithBreakerStates(states func() map[string]string) RouterOption {
	return func(rt *Router) { rt.breakers = states }
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	reporter ports.ItemReporter,
	items ports.ItemReader,
	finder ports.MatchFinder,
	stored ports.MatchReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		reporter: reporter,
		items:    items,
		finder:   finder,
		stored:   stored,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	openapiRouter, err := loadOpenAPIRouter()
	if err != nil {
		rt.logger.Error("openapi_validation_disabled", "error", err)
	} else {
		rt.openapi = openapiRouter
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/items", rt.reportItem)
	mux.HandleFunc("GET /v1/items/{item_id}", rt.getItem)
	mux.HandleFunc("GET /v1/items/{item_id}/matches", rt.findMatches)
	mux.HandleFunc("GET /v1/items/{item_id}/matches/stored", rt.listStoredMatches)
	mux.HandleFunc("GET /v1/confidence-band", rt.confidenceBand)

	var api http.Handler = mux
	api = openAPIValidationMiddleware(api, rt.openapi)
	api = backpressureMiddleware(api, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	api = rateLimitMiddleware(api, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	root.Handle("/", api)
	if rt.metrics != nil {
		root.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = root
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.breakers != nil {
		payload["breakers"] = rt.breakers()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) reportItem(w http.ResponseWriter, r *http.Request) {
	var draft domain.ItemDraft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBodyLen)).Decode(&draft); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	item, err := rt.reporter.Report(r.Context(), draft)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordItemReported(serviceName, string(item.Type))
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (rt *Router) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := rt.items.GetByID(r.Context(), r.PathValue("item_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type matchView struct {
	domain.MatchResult
	Band matching.Band `json:"band"`
}

func (rt *Router) findMatches(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("item_id")
	results, err := rt.finder.FindMatches(r.Context(), itemID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	views := make([]matchView, 0, len(results))
	for _, result := range results {
		views = append(views, matchView{MatchResult: result, Band: matching.ConfidenceBand(result.Confidence)})
	}
	if rt.metrics != nil {
		rt.metrics.RecordMatchLookup(serviceName, "matches", len(views))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id": itemID,
		"matches": views,
	})
}

func (rt *Router) listStoredMatches(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("item_id")
	stored, err := rt.stored.ListMatches(r.Context(), itemID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if stored == nil {
		stored = []domain.StoredMatch{}
	}
	if rt.metrics != nil {
		rt.metrics.RecordMatchLookup(serviceName, "matches_stored", len(stored))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id": itemID,
		"matches": stored,
	})
}

func (rt *Router) confidenceBand(w http.ResponseWriter, r *http.Request) {
	confidence, err := strconv.ParseFloat(r.URL.Query().Get("confidence"), 64)
	if err != nil || math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "confidence must be a number in [0,1]"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confidence": confidence,
		"band":       matching.ConfidenceBand(confidence),
	})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	if status == http.StatusInternalServerError {
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
